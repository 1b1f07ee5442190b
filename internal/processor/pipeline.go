// Package processor runs requests through classification, validation and
// assignment and hands the resulting records to persistence.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/categorizer/internal/assignment"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/classifier"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

// ErrPersistFailed is returned when the sink did not accept a record.
var ErrPersistFailed = errors.New("persist record")

// Sink persists processed records. It owns durability and transactions.
type Sink interface {
	Name() string
	Persist(ctx context.Context, record *domain.Record) error
}

// Recorder receives per-request metrics.
type Recorder interface {
	RecordOutcome(record *domain.Record, elapsed time.Duration)
	RecordSinkFailure(sink string)
}

// Request is one submission from the intake side.
type Request struct {
	ID          string         `json:"id"`
	SubmitterID string         `json:"submitter_id,omitempty"`
	Format      domain.Format  `json:"format"`
	Payload     map[string]any `json:"payload,omitempty"`
	Text        string         `json:"text,omitempty"`
}

// Input converts the request to a ClassificationInput. Without an explicit
// format, a request carrying text and no payload is treated as text.
func (r Request) Input() *domain.ClassificationInput {
	format := r.Format
	if format == "" {
		format = domain.FormatStructured
		if r.Payload == nil && r.Text != "" {
			format = domain.FormatText
		}
	}
	if format == domain.FormatText {
		return domain.NewTextInput(r.ID, r.SubmitterID, r.Text)
	}
	return domain.NewStructuredInput(r.ID, r.SubmitterID, r.Payload)
}

// Config holds the optional collaborators of a Pipeline.
type Config struct {
	Sink     Sink
	Recorder Recorder
	Tracer   trace.Tracer
	Retry    retry.Config
}

// Pipeline is the request-level service: one snapshot per request, every
// stage run to completion, then the record is persisted.
type Pipeline struct {
	store        *catalog.Store
	classifier   *classifier.Classifier
	validator    *validation.Engine
	orchestrator *assignment.Orchestrator
	sink         Sink
	recorder     Recorder
	tracer       trace.Tracer
	retry        retry.Config
	logger       infralogger.Logger
	now          func() time.Time
}

// NewPipeline wires the stages together.
func NewPipeline(
	store *catalog.Store,
	cls *classifier.Classifier,
	validator *validation.Engine,
	orchestrator *assignment.Orchestrator,
	log infralogger.Logger,
	cfg Config,
) *Pipeline {
	if log == nil {
		log = infralogger.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Pipeline{
		store:        store,
		classifier:   cls,
		validator:    validator,
		orchestrator: orchestrator,
		sink:         cfg.Sink,
		recorder:     cfg.Recorder,
		tracer:       tracer,
		retry:        cfg.Retry,
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns the active configuration snapshot.
func (p *Pipeline) Snapshot() *catalog.Snapshot {
	return p.store.Current()
}

// Process runs req through the whole pipeline. The returned record is always
// in a terminal state. The error is non-nil when the input was rejected
// (domain.ErrInputRejected) or the record could not be persisted
// (ErrPersistFailed). A context cancelled before processing starts aborts
// without a record.
func (p *Pipeline) Process(ctx context.Context, req Request) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	// Once started, the request runs to a consistent end.
	ctx = context.WithoutCancel(ctx)

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	snap := p.store.Current()
	in := req.Input()
	log := infralogger.FromContext(ctx, p.logger).With(infralogger.String("request_id", req.ID))

	ctx, span := p.tracer.Start(ctx, "categorizer.process", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.String("request.format", string(in.Format)),
		attribute.String("config.version", snap.Version),
	))
	defer span.End()

	record := &domain.Record{
		RequestID:       req.ID,
		SubmitterID:     req.SubmitterID,
		Format:          in.Format,
		Payload:         in.Payload,
		Text:            in.Text,
		State:           domain.StatePending,
		SnapshotVersion: snap.Version,
	}
	if err := p.advance(record, domain.StateProcessing); err != nil {
		return nil, err
	}

	result, classifyErr := p.classifier.Classify(ctx, snap, in)
	if classifyErr != nil {
		record.Error = classifyErr.Error()
		if err := p.advance(record, domain.StateFailed); err != nil {
			return nil, err
		}
		span.SetStatus(codes.Error, classifyErr.Error())
		log.Warn("Request rejected", infralogger.Error(classifyErr))

		persistErr := p.persist(ctx, record)
		p.finish(record, start)
		return record, errors.Join(classifyErr, persistErr)
	}

	report := p.validator.Validate(snap, result.Primary.Category, in)
	for _, w := range report.Warnings {
		log.Warn("Validation skipped", infralogger.String("category", report.Category), infralogger.String("reason", w))
	}
	bundle := p.orchestrator.Assemble(snap, result, &report, in)

	record.Classification = result
	record.Validation = &report
	record.Bundle = &bundle
	if err := p.advance(record, assignment.TerminalState(snap, result, &report)); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("category.primary", result.Primary.Category),
		attribute.Float64("category.confidence", bundle.Primary.Confidence),
		attribute.String("request.state", string(record.State)),
	)
	log.Info("Request categorized",
		infralogger.String("category", result.Primary.Category),
		infralogger.String("subcategory", bundle.Primary.Subcategory),
		infralogger.Float64("confidence", bundle.Primary.Confidence),
		infralogger.Int("secondary", len(bundle.Secondary)),
		infralogger.Int("violations", len(report.Violations())),
		infralogger.String("state", string(record.State)),
	)

	persistErr := p.persist(ctx, record)
	if persistErr != nil {
		span.SetStatus(codes.Error, persistErr.Error())
	}
	p.finish(record, start)
	return record, persistErr
}

// Validate checks payload against category's rule set on the active snapshot.
func (p *Pipeline) Validate(category string, payload map[string]any) (domain.ValidationReport, error) {
	snap := p.store.Current()
	if !snap.HasCategory(category) {
		return domain.ValidationReport{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	return p.validator.ValidatePayload(snap, category, payload), nil
}

func (p *Pipeline) advance(record *domain.Record, to domain.RequestState) error {
	next, err := domain.Transition(record.State, to)
	if err != nil {
		return err
	}
	record.State = next
	if next.Terminal() {
		record.ProcessedAt = p.now()
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, record *domain.Record) error {
	if p.sink == nil {
		return nil
	}

	err := retry.Retry(ctx, p.retry, func() error {
		return p.sink.Persist(ctx, record)
	})
	if err != nil {
		if p.recorder != nil {
			p.recorder.RecordSinkFailure(p.sink.Name())
		}
		p.logger.Error("Failed to persist record",
			infralogger.String("request_id", record.RequestID),
			infralogger.String("sink", p.sink.Name()),
			infralogger.Error(err),
		)
		return fmt.Errorf("%w %s to %s: %w", ErrPersistFailed, record.RequestID, p.sink.Name(), err)
	}
	return nil
}

func (p *Pipeline) finish(record *domain.Record, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordOutcome(record, time.Since(start))
	}
}
