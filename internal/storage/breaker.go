package storage

import (
	"context"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
)

// BreakerSink stops writing to a sink that keeps failing. While the circuit is
// open Persist fails fast with circuitbreaker.ErrCircuitOpen.
type BreakerSink struct {
	inner   processor.Sink
	breaker *circuitbreaker.Breaker
}

// NewBreakerSink guards inner with breaker.
func NewBreakerSink(inner processor.Sink, breaker *circuitbreaker.Breaker) *BreakerSink {
	return &BreakerSink{inner: inner, breaker: breaker}
}

// Name implements processor.Sink.
func (s *BreakerSink) Name() string { return s.inner.Name() }

// State returns the breaker state.
func (s *BreakerSink) State() circuitbreaker.State { return s.breaker.State() }

// Persist implements processor.Sink.
func (s *BreakerSink) Persist(ctx context.Context, record *domain.Record) error {
	return s.breaker.Execute(ctx, func() error {
		return s.inner.Persist(ctx, record)
	})
}
