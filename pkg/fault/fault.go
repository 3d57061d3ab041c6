// Package fault decides when a mock dependency misbehaves.
//
// A Policy pairs a failure probability with a latency range. Every mock in
// faultline (store, payment, inventory, delivery) takes its own Policy so the
// demo can be tuned from config and made fully deterministic in tests:
//
//	p := fault.New(0.2, 50*time.Millisecond, 200*time.Millisecond)
//	if err := p.Wait(ctx); err != nil {
//	    return err // caller gave up
//	}
//	if p.Trip() {
//	    // simulate the failure
//	}
package fault

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Policy is safe for concurrent use.
type Policy struct {
	rate     float64
	minDelay time.Duration
	maxDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Policy.
type Option func(*Policy)

// WithSeed makes the sequence of Trip and Delay results reproducible.
func WithSeed(seed uint64) Option {
	return func(p *Policy) {
		p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// New returns a Policy that trips with probability rate (clamped to [0,1])
// and delays for a uniformly random duration in [minDelay, maxDelay].
func New(rate float64, minDelay, maxDelay time.Duration, opts ...Option) *Policy {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	now := uint64(time.Now().UnixNano())
	p := &Policy{
		rate:     rate,
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Never returns a Policy that never trips and never sleeps.
func Never() *Policy { return New(0, 0, 0) }

// Always returns a Policy that always trips and never sleeps.
func Always() *Policy { return New(1, 0, 0) }

// Rate returns the trip probability.
func (p *Policy) Rate() float64 {
	if p == nil {
		return 0
	}
	return p.rate
}

// Trip reports whether this call should fail.
func (p *Policy) Trip() bool {
	if p == nil || p.rate == 0 {
		return false
	}
	if p.rate == 1 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.rate
}

// Delay draws the next latency from the configured range.
func (p *Policy) Delay() time.Duration {
	if p == nil || p.maxDelay == 0 {
		return 0
	}
	span := p.maxDelay - p.minDelay
	if span == 0 {
		return p.minDelay
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minDelay + time.Duration(p.rng.Int64N(int64(span)+1))
}

// Wait sleeps for Delay or until ctx is done, whichever comes first.
func (p *Policy) Wait(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pick returns a pseudo-random index in [0, n).
func (p *Policy) Pick(n int) int {
	if p == nil || n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
