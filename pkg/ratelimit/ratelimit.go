// Package ratelimit keeps one token bucket per key (client IP, login email).
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneAt is the key count above which idle buckets are dropped on the next
// Allow. Buckets are only inspected then; nothing sweeps in the background.
const pruneAt = 10_000

// Limiter hands out per-key token buckets.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// New allows r events per second with bursts of burst per key.
func New(r rate.Limit, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		now:      time.Now,
	}
}

// PerWindow allows n events per window for each key, all of which may be
// spent at once.
func PerWindow(n int, window time.Duration) *Limiter {
	if n < 1 {
		n = 1
	}
	return New(rate.Every(window/time.Duration(n)), n)
}

// WithClock replaces the time source. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if ok {
		return lim
	}
	if len(l.limiters) >= pruneAt {
		l.pruneLocked(now)
	}
	lim = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = lim
	return lim
}

// pruneLocked drops buckets that have refilled completely; they are
// indistinguishable from new ones.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, k)
		}
	}
}

// Allow consumes one token for key. When the bucket is empty it reports
// false and how long until the next token, without consuming anything.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	lim := l.get(key, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Duration(math.MaxInt64)
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Forget drops key's bucket, as after a successful login.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RetryAfterSeconds rounds d up to whole seconds for the Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
