package guard

import (
	"strings"
	"sync"
	"time"
)

type debounceKey struct {
	channel string
	subject string
}

// DebounceClock drops semantic repeats: the same channel asking about the same
// component or user again within the cooldown.
type DebounceClock struct {
	mu       sync.Mutex
	last     map[debounceKey]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func NewDebounceClock(cooldown time.Duration) *DebounceClock {
	return NewDebounceClockWithClock(cooldown, time.Now)
}

// NewDebounceClockWithClock reads the current time from now instead of the wall clock.
func NewDebounceClockWithClock(cooldown time.Duration, now func() time.Time) *DebounceClock {
	return &DebounceClock{
		last:     make(map[debounceKey]time.Time),
		cooldown: cooldown,
		now:      now,
	}
}

// Normalize lowercases subject and collapses whitespace so formatting differences
// debounce together.
func Normalize(subject string) string {
	return strings.Join(strings.Fields(strings.ToLower(subject)), " ")
}

// Allow records the request and reports whether it is outside the cooldown.
func (d *DebounceClock) Allow(channel, subject string) bool {
	key := debounceKey{channel: channel, subject: Normalize(subject)}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.last[key]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.last[key] = now
	return true
}

// TimeUntilNext is how long until Allow would accept the same request.
func (d *DebounceClock) TimeUntilNext(channel, subject string) time.Duration {
	key := debounceKey{channel: channel, subject: Normalize(subject)}

	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.last[key]
	if !ok {
		return 0
	}
	elapsed := d.now().Sub(last)
	if elapsed >= d.cooldown {
		return 0
	}
	return d.cooldown - elapsed
}

func (d *DebounceClock) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, last := range d.last {
		if now.Sub(last) > d.cooldown*2 {
			delete(d.last, key)
		}
	}
}
