package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome is the per-item result the scheduler aggregates.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeDuplicate
)

// ChunkStats are cumulative totals across all chunks processed so far.
type ChunkStats struct {
	Processed  int
	Succeeded  int
	Failed     int
	Duplicates int
}

// ChunkScheduler splits work into fixed-size chunks processed strictly in
// order. Items within a chunk run concurrently up to Concurrency; chunk
// boundaries are synchronization barriers, and the checkpoint persisted after
// each chunk is the resumability record.
type ChunkScheduler struct {
	ChunkSize   int
	Concurrency int
	Delay       time.Duration
}

// Run processes total items. process reports each item's outcome; it must
// not panic. checkpoint receives cumulative stats after every chunk; a
// checkpoint error aborts the run, but a chunk whose every item failed does
// not. Only context cancellation stops the run early otherwise.
func (s *ChunkScheduler) Run(ctx context.Context, total int,
	process func(ctx context.Context, index int) Outcome,
	checkpoint func(stats ChunkStats) error) (ChunkStats, error) {

	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 20
	}
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var stats ChunkStats
	var mu sync.Mutex

	chunks := 0
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunks++

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		g, chunkCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i := start; i < end; i++ {
			index := i
			g.Go(func() error {
				outcome := process(chunkCtx, index)

				mu.Lock()
				stats.Processed++
				switch outcome {
				case OutcomeSuccess:
					stats.Succeeded++
				case OutcomeFailed:
					stats.Failed++
				case OutcomeDuplicate:
					stats.Duplicates++
				}
				mu.Unlock()
				return nil
			})
		}

		// process never returns errors, so this only waits for the barrier.
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if checkpoint != nil {
			if err := checkpoint(stats); err != nil {
				return stats, err
			}
		}

		slog.Debug("Chunk completed", "chunk", chunks,
			"processed", stats.Processed, "succeeded", stats.Succeeded,
			"failed", stats.Failed, "duplicates", stats.Duplicates)

		if s.Delay > 0 && end < total {
			timer := time.NewTimer(s.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return stats, ctx.Err()
			}
		}
	}

	return stats, nil
}
