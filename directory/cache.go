// Package directory caches the component names known to the issue tracker and resolves
// free text against them.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"jira-insights-bot/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Source lists component names from the tracker.
type Source interface {
	Components(ctx context.Context) ([]string, error)
}

// Policy decides when the cache goes back to the Source.
type Policy int

const (
	// PolicyIfEmpty refreshes only when no names are cached.
	PolicyIfEmpty Policy = iota
	// PolicyTTL also refreshes when the cached set is older than the TTL.
	PolicyTTL
)

func ParsePolicy(s string) Policy {
	if strings.EqualFold(s, "ttl") {
		return PolicyTTL
	}
	return PolicyIfEmpty
}

type Options struct {
	// ResolvePolicy applies to interactive resolution, ListPolicy to full listings.
	ResolvePolicy Policy
	ListPolicy    Policy
	TTL           time.Duration
	Now           func() time.Time
}

// Cache holds the component set. Refresh replaces the whole set; readers never see a
// partially written set.
type Cache struct {
	src  Source
	opts Options
	log  zerolog.Logger

	group singleflight.Group

	mu          sync.RWMutex
	names       []string
	refreshedAt time.Time
}

func NewCache(src Source, opts Options, logger zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		src:  src,
		opts: opts,
		log:  logger.With().Str("component", "directory").Logger(),
	}
}

// Refresh reloads the set unconditionally. Concurrent callers share one tracker call.
// On failure the existing set is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		names, err := c.src.Components(ctx)
		if err != nil {
			return nil, err
		}
		names = dedupe(names)

		c.mu.Lock()
		c.names = names
		c.refreshedAt = c.opts.Now()
		c.mu.Unlock()

		c.log.Info().Str("where", "directory:Refresh").Int("components", len(names)).Msg("component directory refreshed")
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("refresh components: %w", err)
	}
	return nil
}

// EnsureFresh refreshes according to the listing policy.
func (c *Cache) EnsureFresh(ctx context.Context) error {
	return c.ensure(ctx, c.opts.ListPolicy)
}

func (c *Cache) ensure(ctx context.Context, policy Policy) error {
	c.mu.RLock()
	empty := len(c.names) == 0
	stale := c.opts.Now().Sub(c.refreshedAt) >= c.opts.TTL
	c.mu.RUnlock()

	if empty || (policy == PolicyTTL && stale) {
		return c.Refresh(ctx)
	}
	return nil
}

func (c *Cache) snapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Names returns the known components sorted. A refresh error is returned together with
// the stale set when one exists; an empty set always comes with an error.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	return c.namesWith(ctx, c.opts.ListPolicy)
}

func (c *Cache) namesWith(ctx context.Context, policy Policy) ([]string, error) {
	err := c.ensure(ctx, policy)
	names := c.snapshot()
	if len(names) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNoComponents, err)
		}
		return nil, models.ErrNoComponents
	}
	sort.Strings(names)
	if err != nil {
		c.log.Warn().Err(err).Str("where", "directory:Names").Msg("using stale component directory")
	}
	return names, err
}

// Resolve matches free text against the directory. Empty input never reaches the tracker.
func (c *Cache) Resolve(ctx context.Context, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	names, err := c.namesWith(ctx, c.opts.ResolvePolicy)
	if len(names) == 0 {
		return nil, err
	}
	return Match(raw, names), nil
}

// Exact finds the tracker spelling of name ignoring case.
func (c *Cache) Exact(ctx context.Context, name string) (string, bool) {
	names, _ := c.namesWith(ctx, c.opts.ResolvePolicy)
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
