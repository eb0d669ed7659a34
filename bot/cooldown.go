package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepEvery is how often refilled buckets are dropped.
const sweepEvery = time.Minute

// cooldowns is a per user and command token bucket of burst 1.
type cooldowns struct {
	mu        sync.Mutex
	now       func() time.Time
	limiters  map[cooldownKey]*rate.Limiter
	lastSweep time.Time
}

type cooldownKey struct {
	platform, user, command string
}

func newCooldowns(now func() time.Time) *cooldowns {
	return &cooldowns{now: now, limiters: make(map[cooldownKey]*rate.Limiter)}
}

// take consumes the token for key and returns zero, or returns how long the
// caller must wait without consuming anything.
func (c *cooldowns) take(key cooldownKey, every time.Duration) time.Duration {
	if every <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(every), 1)
		c.limiters[key] = lim
	}
	r := lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d
	}
	return 0
}

// sweep drops buckets that have refilled; a fresh bucket behaves the same.
// Callers hold c.mu.
func (c *cooldowns) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < sweepEvery {
		return
	}
	c.lastSweep = now
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, key)
		}
	}
}
