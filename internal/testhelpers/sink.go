package testhelpers

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// MemorySink records persisted records. The first FailTimes calls return Err.
type MemorySink struct {
	FailTimes int
	Err       error

	mu      sync.Mutex
	calls   int
	records []*domain.Record
}

// Name implements processor.Sink.
func (s *MemorySink) Name() string { return "memory" }

// Persist implements processor.Sink.
func (s *MemorySink) Persist(_ context.Context, record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.FailTimes {
		return s.Err
	}
	s.records = append(s.records, record)
	return nil
}

// Records returns the persisted records.
func (s *MemorySink) Records() []*domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Record(nil), s.records...)
}

// Calls returns how many times Persist was called.
func (s *MemorySink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
