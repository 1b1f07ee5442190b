package classifier

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Observer receives per-extractor timings and faults.
type Observer interface {
	ObserveExtractor(method domain.Method, elapsed time.Duration, err error)
}

// Classifier runs the extractors, combines their opinions and selects
// categories. It holds no per-request state and is safe for concurrent use.
type Classifier struct {
	extractors []Extractor
	logger     infralogger.Logger
	observer   Observer
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithExtractors replaces the default extractors.
func WithExtractors(extractors ...Extractor) Option {
	return func(c *Classifier) { c.extractors = extractors }
}

// WithObserver reports extractor timings and faults to o.
func WithObserver(o Observer) Option {
	return func(c *Classifier) { c.observer = o }
}

// New creates a Classifier with the default extractors.
func New(log infralogger.Logger, opts ...Option) *Classifier {
	if log == nil {
		log = infralogger.NewNop()
	}
	c := &Classifier{
		extractors: DefaultExtractors(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type extraction struct {
	method domain.Method
	scores domain.ScoreMap
	err    error
}

// Classify scores in against snap. It returns domain.ErrInputRejected when
// there is no payload or when every extractor faulted; a single faulting
// extractor only loses its own opinion.
func (c *Classifier) Classify(
	ctx context.Context,
	snap *catalog.Snapshot,
	in *domain.ClassificationInput,
) (*domain.ClassificationResult, error) {
	log := infralogger.FromContext(ctx, c.logger)

	if in.Empty() {
		return nil, fmt.Errorf("%w: no payload to classify", domain.ErrInputRejected)
	}

	results := c.extract(snap, in)

	opinions := make([]domain.ScoreMap, 0, len(results))
	evidence := make(map[domain.Method]domain.ScoreMap, len(results))
	var faults []string
	for _, r := range results {
		if r.err != nil {
			faults = append(faults, string(r.method))
			log.Warn("Extractor fault",
				infralogger.String("request_id", in.ID),
				infralogger.String("method", string(r.method)),
				infralogger.Error(r.err),
			)
			continue
		}
		opinions = append(opinions, r.scores)
		evidence[r.method] = r.scores
	}

	if len(results) > 0 && len(faults) == len(results) {
		return nil, fmt.Errorf("%w: all %d extractors faulted", domain.ErrInputRejected, len(results))
	}

	sel := Select(snap, Combine(opinions...))

	result := &domain.ClassificationResult{
		Primary:         sel.Primary,
		Secondary:       sel.Secondary,
		ManualReview:    sel.ManualReview,
		ReviewReason:    sel.ReviewReason,
		Evidence:        evidence,
		Faults:          faults,
		Fallback:        sel.Fallback,
		SnapshotVersion: snap.Version,
	}

	log.Debug("Classification complete",
		infralogger.String("request_id", in.ID),
		infralogger.String("primary", result.Primary.Category),
		infralogger.Float64("confidence", result.Primary.Confidence),
		infralogger.Strings("secondary", result.SecondaryCategories()),
		infralogger.Bool("manual_review", result.ManualReview),
	)
	return result, nil
}

// extract runs every extractor concurrently. Results keep extractor order.
func (c *Classifier) extract(snap *catalog.Snapshot, in *domain.ClassificationInput) []extraction {
	results := make([]extraction, len(c.extractors))

	var g errgroup.Group
	for i, e := range c.extractors {
		g.Go(func() error {
			start := time.Now()
			scores, err := safeExtract(e, snap, in)
			if c.observer != nil {
				c.observer.ObserveExtractor(e.Method(), time.Since(start), err)
			}
			results[i] = extraction{method: e.Method(), scores: scores, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func safeExtract(e Extractor, snap *catalog.Snapshot, in *domain.ClassificationInput) (scores domain.ScoreMap, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("%w: %s panicked: %v", domain.ErrExtractorFault, e.Method(), r)
		}
	}()

	scores, err = e.Extract(snap, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractorFault, e.Method(), err)
	}
	if scores == nil {
		scores = domain.ScoreMap{}
	}
	return scores, nil
}
