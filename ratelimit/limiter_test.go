package ratelimit_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentstudio/aigateway/ratelimit"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T) (*ratelimit.Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l, err := ratelimit.NewWithClock(1024, clock.now)
	require.NoError(t, err)
	return l, clock
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < 60; i++ {
		allowed, info := l.Check("client-a", 60, time.Minute)
		require.True(t, allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 60-(i+1), info.Remaining)
	}

	allowed, info := l.Check("client-a", 60, time.Minute)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.False(t, info.ResetTime.IsZero())
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		allowed, _ := l.Check("client-a", 5, time.Minute)
		require.True(t, allowed)
	}
	allowed, _ := l.Check("client-a", 5, time.Minute)
	require.False(t, allowed)

	clock.advance(time.Minute + time.Second)

	allowed, info := l.Check("client-a", 5, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 4, info.Remaining)
}

func TestLimiterIsolatesClients(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Check("client-a", 3, time.Minute)
		require.True(t, allowed)
	}
	allowed, _ := l.Check("client-a", 3, time.Minute)
	assert.False(t, allowed)

	allowed, _ = l.Check("client-b", 3, time.Minute)
	assert.True(t, allowed)
}

func TestLimiterPerCallPolicies(t *testing.T) {
	l, _ := newTestLimiter(t)

	// The same store can serve different limits for different endpoints.
	allowed, info := l.Check("client-a", 2, time.Minute)
	require.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)

	allowed, info = l.Check("client-a", 10, time.Minute)
	require.True(t, allowed)
	assert.Equal(t, 8, info.Remaining)
}

func TestLimiterIdleClientResetsLazily(t *testing.T) {
	l, clock := newTestLimiter(t)

	allowed, _ := l.Check("client-a", 1, time.Minute)
	require.True(t, allowed)
	allowed, _ = l.Check("client-a", 1, time.Minute)
	require.False(t, allowed)

	// Days of silence, then one call: the window resets on that call.
	clock.advance(72 * time.Hour)
	allowed, info := l.Check("client-a", 1, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, clock.t.Add(time.Minute), info.ResetTime)
}

func TestLimiterBoundsClientStore(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	l, err := ratelimit.NewWithClock(8, clock.now)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		allowed, _ := l.Check(fmt.Sprintf("client-%d", i), 60, time.Minute)
		require.True(t, allowed)
	}
}
