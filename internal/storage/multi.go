package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
)

// MultiSink writes a record to every sink in order. A failing sink does not
// stop the others; all failures are returned joined. Sinks must be idempotent
// because the pipeline retries the whole fan-out.
type MultiSink struct {
	sinks []processor.Sink
}

// NewMultiSink combines sinks. Nil entries are ignored.
func NewMultiSink(sinks ...processor.Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Name lists the member sinks.
func (m *MultiSink) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Persist implements processor.Sink.
func (m *MultiSink) Persist(ctx context.Context, record *domain.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Persist(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
