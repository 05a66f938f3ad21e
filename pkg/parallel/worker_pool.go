// Package parallel provides chunked parallel processing and progress tracking.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Worker Pool Configuration
// ============================================================================

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// Timeout is the maximum time for the entire operation.
	// Default: 0 (no timeout)
	Timeout time.Duration

	// CollectMetrics enables collection of execution metrics.
	CollectMetrics bool
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8 // Cap at 8 to avoid excessive overhead
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{MaxWorkers: workers}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// WithTimeout returns a new config with the specified timeout.
func (c PoolConfig) WithTimeout(d time.Duration) PoolConfig {
	c.Timeout = d
	return c
}

// WithMetrics returns a new config with metrics collection enabled.
func (c PoolConfig) WithMetrics() PoolConfig {
	c.CollectMetrics = true
	return c
}

// ============================================================================
// Execution Metrics
// ============================================================================

// PoolMetrics holds execution statistics.
type PoolMetrics struct {
	TotalChunks     int64
	CompletedChunks int64
	FailedChunks    int64
	TotalDuration   time.Duration
	MaxChunkTime    time.Duration
	MinChunkTime    time.Duration
}

// ============================================================================
// Chunks
// ============================================================================

// Chunk is the half-open index range [Start, End) of one unit of work.
// Index numbers chunks from 0 in order; it does not depend on the worker count.
type Chunk struct {
	Index int
	Start uint64
	End   uint64
}

// Len returns the number of items in the chunk.
func (c Chunk) Len() uint64 {
	return c.End - c.Start
}

// Split cuts [0, total) into chunks of chunkSize items; the last may be shorter.
func Split(total, chunkSize uint64) []Chunk {
	if total == 0 {
		return nil
	}
	if chunkSize == 0 {
		chunkSize = total
	}
	chunks := make([]Chunk, 0, (total+chunkSize-1)/chunkSize)
	for start := uint64(0); start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, End: end})
	}
	return chunks
}

// ============================================================================
// Chunk Processor
// ============================================================================

// ChunkProcessor runs a function over fixed-size chunks with a bounded number
// of workers. Because chunk boundaries only depend on the chunk size, work
// seeded by Chunk.Index produces the same output for any worker count.
type ChunkProcessor struct {
	config  PoolConfig
	metrics PoolMetrics
	mu      sync.Mutex
}

// NewChunkProcessor creates a new chunk processor.
func NewChunkProcessor(config PoolConfig) *ChunkProcessor {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	return &ChunkProcessor{
		config:  config,
		metrics: PoolMetrics{MinChunkTime: time.Hour},
	}
}

// Process calls fn once per chunk of [0, total). It stops handing out chunks
// after the first error or when ctx is done, and returns that error.
func (p *ChunkProcessor) Process(ctx context.Context, total, chunkSize uint64, fn func(ctx context.Context, c Chunk) error) error {
	chunks := Split(total, chunkSize)
	if len(chunks) == 0 {
		return nil
	}

	startTime := time.Now()
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	chunkCh := make(chan Chunk)

	g.Go(func() error {
		defer close(chunkCh)
		for _, c := range chunks {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chunkCh <- c:
			}
		}
		return nil
	})

	for i := 0; i < min(p.config.MaxWorkers, len(chunks)); i++ {
		g.Go(func() error {
			for c := range chunkCh {
				chunkStart := time.Now()
				err := fn(ctx, c)
				if p.config.CollectMetrics {
					p.updateMetrics(time.Since(chunkStart), err)
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if p.config.CollectMetrics {
		p.mu.Lock()
		p.metrics.TotalDuration = time.Since(startTime)
		p.mu.Unlock()
	}
	return err
}

// updateMetrics updates the pool metrics (thread-safe).
func (p *ChunkProcessor) updateMetrics(duration time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TotalChunks++
	if err != nil {
		p.metrics.FailedChunks++
	} else {
		p.metrics.CompletedChunks++
	}
	if duration > p.metrics.MaxChunkTime {
		p.metrics.MaxChunkTime = duration
	}
	if duration < p.metrics.MinChunkTime {
		p.metrics.MinChunkTime = duration
	}
}

// Metrics returns the current execution metrics.
func (p *ChunkProcessor) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// ============================================================================
// Progress Tracking
// ============================================================================

// ProgressTracker tracks progress of parallel operations.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	callback  func(completed, total int64)
	interval  time.Duration
	stopCh    chan struct{}
	stopped   atomic.Bool
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(total int64, callback func(completed, total int64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ProgressTracker{
		total:    total,
		callback: callback,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins progress tracking in a background goroutine.
func (pt *ProgressTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pt.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pt.stopCh:
				return
			case <-ticker.C:
				if pt.callback != nil {
					pt.callback(pt.completed.Load(), pt.total)
				}
			}
		}
	}()
}

// Increment increments the completed count.
func (pt *ProgressTracker) Increment() {
	pt.completed.Add(1)
}

// Add adds n to the completed count.
func (pt *ProgressTracker) Add(n int64) {
	pt.completed.Add(n)
}

// Stop stops progress tracking.
func (pt *ProgressTracker) Stop() {
	if pt.stopped.CompareAndSwap(false, true) {
		close(pt.stopCh)
	}
}

// Completed returns the current completed count.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}
