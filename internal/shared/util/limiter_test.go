package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admitted(l *Limiter) bool {
	ok, _ := l.Admit()
	return ok
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l := NewLimiter(10, 2)

	assert.True(t, admitted(l))
	assert.True(t, admitted(l))
	assert.False(t, admitted(l), "burst should be exhausted")

	time.Sleep(150 * time.Millisecond)
	assert.True(t, admitted(l), "token should refill after 100ms")
}

func TestLimiter_NonPositiveRateIsUnlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.Truef(t, admitted(l), "request %d rejected", i)
	}
	ok, delay := l.Admit()
	assert.True(t, ok)
	assert.Zero(t, delay)
}

func TestLimiter_AdmitReportsDelayWithoutConsuming(t *testing.T) {
	// one token per minute
	l := NewLimiter(1.0/60, 1)

	ok, delay := l.Admit()
	require.True(t, ok)
	assert.Zero(t, delay)

	ok, delay = l.Admit()
	assert.False(t, ok)
	assert.Greater(t, delay, 50*time.Second)
	assert.LessOrEqual(t, delay, time.Minute)

	// a rejected Admit must not push the next slot further out
	_, again := l.Admit()
	assert.LessOrEqual(t, again, delay)
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	require.True(t, admitted(l))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, 1))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(0.001, 1)
	require.True(t, admitted(l))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx, 1))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", RetryAfterSeconds(0))
	assert.Equal(t, "1", RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "60", RetryAfterSeconds(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "3", RetryAfterSeconds(2*time.Second+time.Nanosecond))
}

func TestLimiterRegistry_PerKey(t *testing.T) {
	reg := NewLimiterRegistry(100, 10, time.Minute)
	defer reg.Close()

	a := reg.Get("1.1.1.1")
	b := reg.Get("2.2.2.2")
	assert.NotSame(t, a, b)
	assert.Same(t, a, reg.Get("1.1.1.1"))
	assert.Equal(t, 2, reg.Len())
}

func TestLimiterRegistry_AdmitIsolatesClients(t *testing.T) {
	reg := NewLimiterRegistry(1.0/60, 1, time.Minute)
	defer reg.Close()

	ok, _ := reg.Admit("10.0.0.1")
	require.True(t, ok)
	ok, delay := reg.Admit("10.0.0.1")
	assert.False(t, ok)
	assert.Positive(t, delay)

	ok, _ = reg.Admit("10.0.0.2")
	assert.True(t, ok, "a second client has its own bucket")
}

func TestLimiterRegistry_SweepsIdleClients(t *testing.T) {
	reg := NewLimiterRegistry(100, 10, 100*time.Millisecond)
	defer reg.Close()

	first := reg.Get("1.1.1.1")
	time.Sleep(250 * time.Millisecond)

	assert.NotSame(t, first, reg.Get("1.1.1.1"))
}

func TestLimiterRegistry_SweepDirect(t *testing.T) {
	reg := NewLimiterRegistry(100, 10, time.Hour)
	defer reg.Close()

	reg.Get("stale")
	reg.sweep(time.Now().Add(2 * time.Hour))
	assert.Zero(t, reg.Len())
}

func TestLimiterRegistry_CloseTwice(t *testing.T) {
	reg := NewLimiterRegistry(1, 1, time.Minute)
	reg.Close()
	assert.NotPanics(t, reg.Close)
}
