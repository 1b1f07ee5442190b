package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/circuitbreaker"
)

var errBackend = errors.New("connection refused")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type transition struct{ from, to circuitbreaker.State }

func newBreaker(t *testing.T) (*circuitbreaker.Breaker, *clock, *[]transition) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	var seen []transition
	b := circuitbreaker.New(circuitbreaker.Config{
		Name:             "elasticsearch",
		FailureThreshold: 2,
		Cooldown:         10 * time.Second,
		OnStateChange: func(_ string, from, to circuitbreaker.State) {
			seen = append(seen, transition{from, to})
		},
	}).WithClock(clk.Now)
	return b, clk, &seen
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _, _ := newBreaker(t)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, fail), errBackend)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	require.ErrorIs(t, b.Execute(ctx, fail), errBackend)
	assert.Equal(t, circuitbreaker.StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func() error { called = true; return nil })
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "elasticsearch")
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _, _ := newBreaker(t)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	require.NoError(t, b.Execute(ctx, succeed))
	_ = b.Execute(ctx, fail)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	b, clk, seen := newBreaker(t)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	clk.Advance(10 * time.Second)
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.Equal(t, []transition{
		{circuitbreaker.StateClosed, circuitbreaker.StateOpen},
		{circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen},
		{circuitbreaker.StateHalfOpen, circuitbreaker.StateClosed},
	}, *seen)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, clk, _ := newBreaker(t)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	clk.Advance(11 * time.Second)
	require.ErrorIs(t, b.Execute(ctx, fail), errBackend)
	assert.Equal(t, circuitbreaker.StateOpen, b.State())
	require.ErrorIs(t, b.Execute(ctx, succeed), circuitbreaker.ErrCircuitOpen)
}

func TestBreaker_SingleProbeInFlight(t *testing.T) {
	b, clk, _ := newBreaker(t)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	clk.Advance(10 * time.Second)

	inProbe := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func() error {
			close(inProbe)
			<-finish
			return nil
		})
	}()

	<-inProbe
	require.ErrorIs(t, b.Execute(ctx, succeed), circuitbreaker.ErrCircuitOpen)
	close(finish)
	require.NoError(t, <-done)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	b, _, _ := newBreaker(t)
	ctx, cancel := context.WithCancel(context.Background())

	for range 3 {
		err := b.Execute(ctx, func() error {
			cancel()
			return ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _, _ := newBreaker(t)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	b.Reset()
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	require.NoError(t, b.Execute(ctx, succeed))
}
