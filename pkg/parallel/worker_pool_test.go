package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		chunkSize uint64
		want      []Chunk
	}{
		{"empty", 0, 4, nil},
		{"exact", 8, 4, []Chunk{{0, 0, 4}, {1, 4, 8}}},
		{"short tail", 10, 4, []Chunk{{0, 0, 4}, {1, 4, 8}, {2, 8, 10}}},
		{"zero chunk size is one chunk", 5, 0, []Chunk{{0, 0, 5}}},
		{"chunk larger than total", 3, 100, []Chunk{{0, 0, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.total, tt.chunkSize))
		})
	}
}

func TestChunkProcessor_CoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		p := NewChunkProcessor(DefaultPoolConfig().WithWorkers(workers))
		seen := make([]atomic.Int32, 1000)

		err := p.Process(context.Background(), 1000, 64, func(_ context.Context, c Chunk) error {
			for i := c.Start; i < c.End; i++ {
				seen[i].Add(1)
			}
			return nil
		})
		require.NoError(t, err)
		for i := range seen {
			require.Equal(t, int32(1), seen[i].Load(), "item %d with %d workers", i, workers)
		}
	}
}

func TestChunkProcessor_ResultIndependentOfWorkers(t *testing.T) {
	run := func(workers int) []int {
		out := make([]int, len(Split(100, 7)))
		p := NewChunkProcessor(PoolConfig{MaxWorkers: workers})
		require.NoError(t, p.Process(context.Background(), 100, 7, func(_ context.Context, c Chunk) error {
			out[c.Index] = c.Index*1000 + int(c.Len())
			return nil
		}))
		return out
	}

	assert.Equal(t, run(1), run(8))
}

func TestChunkProcessor_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	p := NewChunkProcessor(PoolConfig{MaxWorkers: 1})

	err := p.Process(context.Background(), 100, 10, func(_ context.Context, c Chunk) error {
		calls.Add(1)
		if c.Index == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(10))
}

func TestChunkProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewChunkProcessor(DefaultPoolConfig())
	err := p.Process(ctx, 100, 1, func(ctx context.Context, _ Chunk) error {
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunkProcessor_Metrics(t *testing.T) {
	p := NewChunkProcessor(DefaultPoolConfig().WithWorkers(2).WithMetrics())
	require.NoError(t, p.Process(context.Background(), 10, 2, func(context.Context, Chunk) error {
		return nil
	}))

	m := p.Metrics()
	assert.Equal(t, int64(5), m.TotalChunks)
	assert.Equal(t, int64(5), m.CompletedChunks)
	assert.Zero(t, m.FailedChunks)
	assert.LessOrEqual(t, m.MinChunkTime, m.MaxChunkTime)
}

func TestProgressTracker(t *testing.T) {
	var mu sync.Mutex
	var lastCompleted, lastTotal int64

	tracker := NewProgressTracker(100, func(completed, total int64) {
		mu.Lock()
		defer mu.Unlock()
		lastCompleted, lastTotal = completed, total
	}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracker.Start(ctx)

	for i := 0; i < 40; i++ {
		tracker.Increment()
	}
	tracker.Add(10)
	assert.Equal(t, int64(50), tracker.Completed())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return lastCompleted == 50 && lastTotal == 100
	}, time.Second, 5*time.Millisecond)

	tracker.Stop()
	tracker.Stop()
}
