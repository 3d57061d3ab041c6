package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestPerWindowExhaustsAndRefills(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	l := ratelimit.PerWindow(3, 3*time.Minute).WithClock(clk.now)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("alice@example.com")
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, wait := l.Allow("alice@example.com")
	assert.False(t, ok)
	assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 1)

	// A rejected attempt must not push the next token further out.
	ok, wait2 := l.Allow("alice@example.com")
	assert.False(t, ok)
	assert.Equal(t, wait, wait2)

	clk.advance(time.Minute)
	ok, _ = l.Allow("alice@example.com")
	assert.True(t, ok)
}

func TestKeysAreIndependent(t *testing.T) {
	l := ratelimit.New(1, 1)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())

	l.Forget("a")
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(0))
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 61, ratelimit.RetryAfterSeconds(60*time.Second+time.Millisecond))
}
