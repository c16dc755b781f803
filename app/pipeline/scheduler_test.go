package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestChunkScheduler_Run_ChunkBoundaries(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 20, Concurrency: 3}

	var checkpoints []int
	stats, err := scheduler.Run(context.Background(), 45,
		func(ctx context.Context, i int) Outcome { return OutcomeSuccess },
		func(stats ChunkStats) error {
			checkpoints = append(checkpoints, stats.Processed)
			return nil
		})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 45 items in chunks of 20 is exactly three chunks: 20, 20, 5.
	want := []int{20, 40, 45}
	if len(checkpoints) != len(want) {
		t.Fatalf("Expected %d checkpoints, got %v", len(want), checkpoints)
	}
	for i, processed := range want {
		if checkpoints[i] != processed {
			t.Errorf("Checkpoint %d: expected %d processed, got %d", i, processed, checkpoints[i])
		}
	}
	if stats.Succeeded != 45 {
		t.Errorf("Expected 45 succeeded, got %d", stats.Succeeded)
	}
}

func TestChunkScheduler_Run_ConcurrencyBound(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 10, Concurrency: 2}

	var active, peak int32
	_, err := scheduler.Run(context.Background(), 10,
		func(ctx context.Context, i int) Outcome {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return OutcomeSuccess
		}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("Concurrency bound exceeded: peak %d", p)
	}
}

func TestChunkScheduler_Run_FailuresDoNotAbort(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 5, Concurrency: 1}

	stats, err := scheduler.Run(context.Background(), 10,
		func(ctx context.Context, i int) Outcome {
			if i < 5 {
				return OutcomeFailed
			}
			return OutcomeSuccess
		}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Processed != 10 {
		t.Errorf("All items must be processed despite failures, got %d", stats.Processed)
	}
	if stats.Failed != 5 || stats.Succeeded != 5 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestChunkScheduler_Run_DelayBetweenChunks(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 2, Concurrency: 2, Delay: 30 * time.Millisecond}

	start := time.Now()
	_, err := scheduler.Run(context.Background(), 4,
		func(ctx context.Context, i int) Outcome { return OutcomeSuccess }, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Expected at least one inter-chunk delay, elapsed %v", elapsed)
	}
}

func TestChunkScheduler_Run_CheckpointErrorAborts(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 2, Concurrency: 1}

	wantErr := context.DeadlineExceeded
	stats, err := scheduler.Run(context.Background(), 6,
		func(ctx context.Context, i int) Outcome { return OutcomeSuccess },
		func(stats ChunkStats) error { return wantErr })

	if err != wantErr {
		t.Fatalf("Expected checkpoint error to abort the run, got %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("Run should stop after the first chunk, processed %d", stats.Processed)
	}
}

func TestChunkScheduler_Run_ContextCancellation(t *testing.T) {
	scheduler := &ChunkScheduler{ChunkSize: 2, Concurrency: 1, Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var stats ChunkStats
	var err error
	go func() {
		stats, err = scheduler.Run(ctx, 4,
			func(ctx context.Context, i int) Outcome { return OutcomeSuccess }, nil)
		close(done)
	}()

	// Cancel while the scheduler waits out the inter-chunk delay.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("Expected only the first chunk processed, got %d", stats.Processed)
	}
}
