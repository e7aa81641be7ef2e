package extractor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"jobscout/pkg/models"
)

// maxParallelWorkers caps the worker pool regardless of configuration
const maxParallelWorkers = 5

// BatchOptions controls how a batch of URLs is processed
type BatchOptions struct {
	// Delay is the inter-request pause in sequential mode
	Delay time.Duration

	// MaxBatchSize truncates the input when positive, bounding per-run cost
	MaxBatchSize int

	// Parallel switches from rate-limited sequential processing to a
	// bounded worker pool.
	Parallel bool

	// MaxWorkers bounds the pool in parallel mode, further capped at 5
	MaxWorkers int
}

// ExtractBatch processes URLs either sequentially with a fixed delay
// between requests or through a bounded worker pool. Results always
// come back in input order regardless of completion order; a failed
// URL occupies its slot as a failed result.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string, opts BatchOptions) []models.ExtractionResult {
	if opts.MaxBatchSize > 0 && len(urls) > opts.MaxBatchSize {
		e.logger.WithFields(logrus.Fields{
			"requested": len(urls),
			"cap":       opts.MaxBatchSize,
		}).Info("Batch truncated to size cap")
		urls = urls[:opts.MaxBatchSize]
	}

	if len(urls) == 0 {
		return nil
	}

	if opts.Parallel {
		return e.extractParallel(ctx, urls, opts)
	}
	return e.extractSequential(ctx, urls, opts)
}

func (e *Extractor) extractSequential(ctx context.Context, urls []string, opts BatchOptions) []models.ExtractionResult {
	delay := opts.Delay
	if delay <= 0 {
		delay = time.Second
	}

	limiter := rate.NewLimiter(rate.Every(delay), 1)
	results := make([]models.ExtractionResult, len(urls))

	for i, url := range urls {
		if err := limiter.Wait(ctx); err != nil {
			results[i] = models.ExtractionResult{
				URL:     url,
				Method:  models.MethodFailed,
				Success: false,
				Error:   err.Error(),
			}
			continue
		}
		results[i] = e.Extract(ctx, url)
	}

	return results
}

func (e *Extractor) extractParallel(ctx context.Context, urls []string, opts BatchOptions) []models.ExtractionResult {
	workers := opts.MaxWorkers
	if workers <= 0 || workers > maxParallelWorkers {
		workers = maxParallelWorkers
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	results := make([]models.ExtractionResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			// Workers write to disjoint slots, so input order survives
			// arbitrary completion order.
			results[i] = e.Extract(gctx, url)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
