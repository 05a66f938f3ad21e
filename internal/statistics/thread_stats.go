package statistics

import (
	"sort"
)

// ThreadSample is the work one benchmark thread completed.
type ThreadSample struct {
	TID  int
	Node int
	Ops  int64
}

// ThreadStatsCalculator calculates how work spread over threads and nodes.
type ThreadStatsCalculator struct {
	maxThreads int
}

// ThreadStatsOption configures the ThreadStatsCalculator.
type ThreadStatsOption func(*ThreadStatsCalculator)

// WithMaxThreads sets the maximum number of threads to return.
func WithMaxThreads(n int) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.maxThreads = n
	}
}

// NewThreadStatsCalculator creates a new ThreadStatsCalculator.
func NewThreadStatsCalculator(opts ...ThreadStatsOption) *ThreadStatsCalculator {
	c := &ThreadStatsCalculator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThreadEntry represents a thread with its share of the work.
type ThreadEntry struct {
	TID        int     `json:"tid"`
	Node       int     `json:"node"`
	Ops        int64   `json:"ops"`
	Percentage float64 `json:"percentage"`
}

// ThreadStatsResult holds the calculation result.
type ThreadStatsResult struct {
	Threads  []ThreadEntry
	NodeOps  map[int]int64
	TotalOps int64
	// Imbalance is the busiest thread's ops over the mean; 1 is perfectly even.
	Imbalance float64
}

// Calculate aggregates samples by thread. Samples with the same TID are summed.
func (c *ThreadStatsCalculator) Calculate(samples []ThreadSample) *ThreadStatsResult {
	result := &ThreadStatsResult{
		Threads: make([]ThreadEntry, 0),
		NodeOps: make(map[int]int64),
	}
	if len(samples) == 0 {
		return result
	}

	byThread := make(map[int]*ThreadEntry)
	for _, s := range samples {
		result.TotalOps += s.Ops
		result.NodeOps[s.Node] += s.Ops
		e, ok := byThread[s.TID]
		if !ok {
			e = &ThreadEntry{TID: s.TID, Node: s.Node}
			byThread[s.TID] = e
		}
		e.Ops += s.Ops
	}

	entries := make([]ThreadEntry, 0, len(byThread))
	var busiest int64
	for _, e := range byThread {
		if result.TotalOps > 0 {
			e.Percentage = float64(e.Ops) / float64(result.TotalOps) * 100
		}
		busiest = max(busiest, e.Ops)
		entries = append(entries, *e)
	}
	if result.TotalOps > 0 {
		mean := float64(result.TotalOps) / float64(len(entries))
		result.Imbalance = float64(busiest) / mean
	}

	// Busiest first, ties by thread id.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Ops != entries[j].Ops {
			return entries[i].Ops > entries[j].Ops
		}
		return entries[i].TID < entries[j].TID
	})
	if c.maxThreads > 0 && len(entries) > c.maxThreads {
		entries = entries[:c.maxThreads]
	}
	result.Threads = entries
	return result
}

// GetThreadByTID returns thread info by TID.
func (r *ThreadStatsResult) GetThreadByTID(tid int) *ThreadEntry {
	for i := range r.Threads {
		if r.Threads[i].TID == tid {
			return &r.Threads[i]
		}
	}
	return nil
}
