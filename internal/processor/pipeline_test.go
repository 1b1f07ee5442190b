package processor_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/assignment"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/classifier"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

type countingRecorder struct {
	mu           sync.Mutex
	states       map[domain.RequestState]int
	sinkFailures int
}

func (r *countingRecorder) RecordOutcome(record *domain.Record, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states == nil {
		r.states = make(map[domain.RequestState]int)
	}
	r.states[record.State]++
}

func (r *countingRecorder) RecordSinkFailure(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinkFailures++
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		IsRetryable:  func(error) bool { return true },
	}
}

func newPipeline(t *testing.T, store *catalog.Store, cfg processor.Config) *processor.Pipeline {
	t.Helper()
	return processor.NewPipeline(store, classifier.New(nil), validation.NewEngine(nil), assignment.New(nil), nil, cfg)
}

func TestPipeline_ProcessCompletedRecord(t *testing.T) {
	t.Parallel()
	sink := &testhelpers.MemorySink{}
	rec := &countingRecorder{}
	p := newPipeline(t, testhelpers.Store(t), processor.Config{Sink: sink, Recorder: rec})

	record, err := p.Process(context.Background(), processor.Request{
		ID:      "req-1",
		Payload: map[string]any{"item_id": "SKU123", "quantity": 100},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateCompleted, record.State)
	assert.Equal(t, "inventory_management", record.Classification.Primary.Category)
	assert.True(t, record.Validation.Valid)
	assert.Equal(t, "inventory_transactions", record.Bundle.Storage.PrimaryTable)
	assert.Equal(t, "2026.10.1", record.SnapshotVersion)
	assert.False(t, record.ProcessedAt.IsZero())

	require.Len(t, sink.Records(), 1)
	assert.Same(t, record, sink.Records()[0])
	assert.Equal(t, 1, rec.states[domain.StateCompleted])
}

func TestPipeline_InvalidRecordGoesToReview(t *testing.T) {
	t.Parallel()
	p := newPipeline(t, testhelpers.Store(t), processor.Config{})

	record, err := p.Process(context.Background(), processor.Request{
		Payload: map[string]any{"item_id": "SKU123", "quantity": -5, "on_hand": 4},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.RequestID, "an id is generated")
	assert.Equal(t, "inventory_management", record.Classification.Primary.Category)
	assert.False(t, record.Validation.Valid)
	assert.Equal(t, domain.StateManualReview, record.State)
}

func TestPipeline_RejectedInput(t *testing.T) {
	t.Parallel()
	sink := &testhelpers.MemorySink{}
	rec := &countingRecorder{}
	p := newPipeline(t, testhelpers.Store(t), processor.Config{Sink: sink, Recorder: rec})

	record, err := p.Process(context.Background(), processor.Request{ID: "req-2", Format: domain.FormatText, Text: "  "})
	require.ErrorIs(t, err, domain.ErrInputRejected)

	require.NotNil(t, record)
	assert.Equal(t, domain.StateFailed, record.State)
	assert.Nil(t, record.Bundle)
	assert.NotEmpty(t, record.Error)
	assert.Equal(t, 1, rec.states[domain.StateFailed])
	require.Len(t, sink.Records(), 1)
}

func TestPipeline_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	sink := &testhelpers.MemorySink{}
	p := newPipeline(t, testhelpers.Store(t), processor.Config{Sink: sink})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := p.Process(ctx, processor.Request{Payload: map[string]any{"sku": "SKU1"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, record)
	assert.Zero(t, sink.Calls())
}

func TestPipeline_PersistRetries(t *testing.T) {
	t.Parallel()
	sink := &testhelpers.MemorySink{FailTimes: 2, Err: errors.New("connection reset")}
	p := newPipeline(t, testhelpers.Store(t), processor.Config{Sink: sink, Retry: fastRetry()})

	_, err := p.Process(context.Background(), processor.Request{Payload: map[string]any{"sku": "SKU1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, sink.Calls())
	assert.Len(t, sink.Records(), 1)
}

func TestPipeline_PersistFailure(t *testing.T) {
	t.Parallel()
	sink := &testhelpers.MemorySink{FailTimes: 10, Err: errors.New("connection refused")}
	rec := &countingRecorder{}
	p := newPipeline(t, testhelpers.Store(t), processor.Config{Sink: sink, Recorder: rec, Retry: fastRetry()})

	record, err := p.Process(context.Background(), processor.Request{Payload: map[string]any{"sku": "SKU1"}})
	require.ErrorIs(t, err, processor.ErrPersistFailed)
	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.True(t, record.State.Terminal())
	assert.Equal(t, 1, rec.sinkFailures)
}

func TestPipeline_ReloadChangesValidation(t *testing.T) {
	t.Parallel()
	store := testhelpers.Store(t)
	p := newPipeline(t, store, processor.Config{})
	payload := map[string]any{"quantity": 5, "on_hand": 10, "reorder_point": 2}

	before, err := p.Validate("inventory_management", payload)
	require.NoError(t, err)
	require.False(t, before.Valid)

	cfg := testhelpers.Configuration(t)
	cfg.RuleSets["inventory_management"] = slices.DeleteFunc(cfg.RuleSets["inventory_management"],
		func(r domain.ValidationRule) bool { return r.ID == "inv-required-item" })
	_, err = store.Reload(cfg)
	require.NoError(t, err)

	after, err := p.Validate("inventory_management", payload)
	require.NoError(t, err)
	assert.True(t, after.Valid)

	_, err = p.Validate("returns", payload)
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestRequest_Input(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.FormatText, processor.Request{Text: "hello"}.Input().Format)
	assert.Equal(t, domain.FormatStructured, processor.Request{Payload: map[string]any{}}.Input().Format)
	assert.Equal(t, domain.FormatStructured, processor.Request{}.Input().Format)
	assert.True(t, processor.Request{}.Input().Empty())
}
