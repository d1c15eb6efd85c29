// Package guard suppresses redelivered webhook events and rapid repeat requests.
// Both guards are in-memory and best-effort.
package guard

import (
	"strings"
	"sync"
	"time"
)

// ProcessedSet remembers delivery keys for a bounded time.
type ProcessedSet struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewProcessedSet keeps keys for ttl; a zero ttl keeps them for the process lifetime.
func NewProcessedSet(ttl time.Duration) *ProcessedSet {
	return &ProcessedSet{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// ShouldProcess reports whether key is new and marks it seen when it is.
func (p *ProcessedSet) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if at, ok := p.seen[key]; ok && (p.ttl <= 0 || now.Sub(at) < p.ttl) {
		return false
	}
	p.seen[key] = now
	return true
}

func (p *ProcessedSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

// Cleanup drops expired keys.
func (p *ProcessedSet) Cleanup() {
	if p.ttl <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for key, at := range p.seen {
		if now.Sub(at) >= p.ttl {
			delete(p.seen, key)
		}
	}
}

// EventKey derives a delivery key from the platform event id.
func EventKey(eventID string) string {
	if eventID == "" {
		return ""
	}
	return "event:" + eventID
}

// MessageKey derives a delivery key from channel, user and message timestamp.
func MessageKey(channel, user, ts string) string {
	if ts == "" {
		return ""
	}
	return strings.Join([]string{"msg", channel, user, ts}, ":")
}

// ActionKey derives a delivery key from the interaction trigger and action timestamp.
func ActionKey(triggerID, actionTS string) string {
	if triggerID == "" && actionTS == "" {
		return ""
	}
	return strings.Join([]string{"action", triggerID, actionTS}, ":")
}
