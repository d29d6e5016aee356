package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldowns tracks per key command cooldowns with one token bucket per key
type Cooldowns struct {
	mu       sync.Mutex
	limiters map[string]*cooldownEntry
}

type cooldownEntry struct {
	limiter *rate.Limiter
	every   time.Duration
	last    time.Time
}

// NewCooldowns creates an empty cooldown table
func NewCooldowns() *Cooldowns {
	return &Cooldowns{limiters: make(map[string]*cooldownEntry)}
}

// Allow consumes the key's token. When the key is still cooling down it returns
// the remaining wait and false, leaving the bucket untouched.
func (c *Cooldowns) Allow(key string, every time.Duration, now time.Time) (time.Duration, bool) {
	if every <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.limiters[key]
	if !ok || entry.every != every {
		entry = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(every), 1), every: every}
		c.limiters[key] = entry
	}

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	entry.last = now
	return 0, true
}

// Sweep forgets keys whose cooldown has fully elapsed
func (c *Cooldowns) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.limiters {
		if now.Sub(entry.last) >= entry.every {
			delete(c.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}

func cooldownKey(cmd *Command, userID string) string {
	return cmd.FullName() + ":" + userID
}
