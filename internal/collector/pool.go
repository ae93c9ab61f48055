package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/resort"
)

type outcome struct {
	desc resort.Descriptor
	err  error
}

// forEachResort fans descriptors out to a bounded worker pool and streams
// outcomes back in completion order. The returned channel closes once
// every item was processed or the context was canceled.
func forEachResort(ctx context.Context, concurrency int, items []resort.Descriptor, fn func(context.Context, resort.Descriptor) error) <-chan outcome {
	work := make(chan resort.Descriptor, len(items))
	results := make(chan outcome, len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for desc := range work {
				select {
				case <-ctx.Done():
					return
				default:
					results <- outcome{desc: desc, err: fn(ctx, desc)}
				}
			}
		}()
	}

	for _, d := range items {
		work <- d
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// runSweep drives one pooled sweep over the given resorts and assembles
// the run report.
func runSweep(ctx context.Context, logger zerolog.Logger, job string, concurrency int, resorts []resort.Descriptor, fn func(context.Context, resort.Descriptor) error) *RunResult {
	start := time.Now()
	result := &RunResult{StartTime: start, TotalResorts: len(resorts)}
	tracker := NewFailureTracker()

	logger.Info().
		Str("job", job).
		Int("total_resorts", len(resorts)).
		Int("concurrency", concurrency).
		Msg("starting sweep")

	done := 0
	for o := range forEachResort(ctx, concurrency, resorts, fn) {
		done++
		if o.err != nil {
			result.Failed++
			tracker.Record(o.desc.ID, o.desc.Name, o.err, sourceRef(o.desc))
			logger.Error().Err(o.err).
				Str("job", job).
				Str("resort", o.desc.Slug).
				Str("progress", fmt.Sprintf("%d/%d", done, len(resorts))).
				Msg("resort failed")
			continue
		}
		result.Successful++
		logger.Info().
			Str("job", job).
			Str("resort", o.desc.Slug).
			Str("progress", fmt.Sprintf("%d/%d", done, len(resorts))).
			Msg("resort done")
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	result.Failures = tracker.Failures()

	tracker.LogSummary(logger)
	logger.Info().
		Str("job", job).
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("sweep completed")

	return result
}

// sourceRef is the upstream reference recorded alongside a failure.
func sourceRef(d resort.Descriptor) string {
	if d.SourceURL != "" {
		return d.SourceURL
	}
	return d.SourceID
}
