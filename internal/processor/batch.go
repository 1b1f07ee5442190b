package processor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

const defaultConcurrency = 10

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Record *domain.Record
	Err    error
}

// BatchProcessor processes many requests with bounded concurrency and an
// optional request rate limit.
type BatchProcessor struct {
	pipeline    *Pipeline
	concurrency int
	limiter     *rate.Limiter
	logger      infralogger.Logger
}

// NewBatchProcessor creates a batch processor. rps <= 0 disables rate limiting.
func NewBatchProcessor(pipeline *Pipeline, concurrency, rps int, log infralogger.Logger) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	b := &BatchProcessor{pipeline: pipeline, concurrency: concurrency, logger: log}
	if rps > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return b
}

// Process runs every request and returns the items in request order. A
// request that has not started when ctx is cancelled reports ctx.Err().
func (b *BatchProcessor) Process(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))
	if len(reqs) == 0 {
		return items
	}

	b.logger.Info("Starting batch processing",
		infralogger.Int("batch_size", len(reqs)),
		infralogger.Int("concurrency", b.concurrency),
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i := range reqs {
		g.Go(func() error {
			if b.limiter != nil {
				if err := b.limiter.Wait(ctx); err != nil {
					items[i] = BatchItem{Err: err}
					return nil
				}
			}
			record, err := b.pipeline.Process(ctx, reqs[i])
			items[i] = BatchItem{Record: record, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	b.logger.Info("Batch processing complete",
		infralogger.Int("total", len(reqs)),
		infralogger.Int("errors", failed),
		infralogger.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return items
}
