package dispatch

import (
	"strings"
	"sync"
	"time"

	"jira-insights-bot/models"
)

// resultCache keeps recent analyses so a CSV download right after viewing results does
// not query Jira and the LLM again.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedResult
}

type cachedResult struct {
	result models.AnalysisResult
	at     time.Time
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	return &resultCache{ttl: ttl, now: now, entries: make(map[string]cachedResult)}
}

func resultKey(component string, platform models.Platform) string {
	return strings.ToLower(component) + "|" + string(platform)
}

func (c *resultCache) get(component string, platform models.Platform) (models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[resultKey(component, platform)]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return models.AnalysisResult{}, false
	}
	return e.result, true
}

func (c *resultCache) put(component string, platform models.Platform, r models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[resultKey(component, platform)] = cachedResult{result: r, at: c.now()}
}

func (c *resultCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.at) >= c.ttl {
			delete(c.entries, k)
		}
	}
}
