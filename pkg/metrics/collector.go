// Package metrics provides per-thread counters and bounded histograms that the
// DSU hot path can update without cross-thread contention.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter and histogram names recorded by the DSU engine.
const (
	LocalReads    = "local_reads"
	RemoteReads   = "remote_reads"
	LocalCAS      = "local_cas"
	RemoteCAS     = "remote_cas"
	CASFailures   = "cas_failures"
	Compressions  = "compressions"
	UnionRetries  = "union_retries"
	LockSpins     = "lock_spins"
	WireRequests  = "wire_requests"
	WireServed    = "wire_served"
	WireFallbacks = "wire_fallbacks"

	FindDepth     = "find_depth"
	UnionAttempts = "union_attempts"
)

// CounterNames lists the engine counters in report order.
var CounterNames = []string{
	LocalReads, RemoteReads, LocalCAS, RemoteCAS, CASFailures, Compressions,
	UnionRetries, LockSpins, WireRequests, WireServed, WireFallbacks,
}

// slot is one counter padded to a cache line.
type slot struct {
	atomic.Uint64
	_ [56]byte
}

// Accessor increments one named counter. The zero value discards updates.
type Accessor struct {
	slots []slot
}

// Inc adds v to the slot of thread tid.
func (a Accessor) Inc(v uint64, tid int) {
	if a.slots == nil {
		return
	}
	a.slots[tid].Add(v)
}

// Enabled reports whether updates are recorded.
func (a Accessor) Enabled() bool {
	return a.slots != nil
}

// HistAccessor records values into a bounded histogram. The zero value discards updates.
type HistAccessor struct {
	max     int
	buckets []slot // threads * (max+1)
}

// Observe records v for thread tid, clamping values above max into the last bucket.
func (h HistAccessor) Observe(v int, tid int) {
	if h.buckets == nil {
		return
	}
	if v > h.max {
		v = h.max
	}
	if v < 0 {
		v = 0
	}
	h.buckets[tid*(h.max+1)+v].Add(1)
}

// Enabled reports whether updates are recorded.
func (h HistAccessor) Enabled() bool {
	return h.buckets != nil
}

// Snapshot is a combined, read-only view of all counters.
type Snapshot map[string]uint64

// Names returns the counter names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Add accumulates other into s.
func (s Snapshot) Add(other Snapshot) {
	for k, v := range other {
		s[k] += v
	}
}

// HistSnapshot maps histogram names to bucket counts. The last bucket holds clamped values.
type HistSnapshot map[string][]uint64

// Total returns the number of observations in the named histogram.
func (h HistSnapshot) Total(name string) uint64 {
	var n uint64
	for _, c := range h[name] {
		n += c
	}
	return n
}

// Mean returns the average bucket index of the named histogram.
func (h HistSnapshot) Mean(name string) float64 {
	var n, sum uint64
	for i, c := range h[name] {
		n += c
		sum += uint64(i) * c
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Collector owns the counter and histogram slots for a fixed number of threads.
type Collector struct {
	threads int

	mu       sync.Mutex
	counters map[string][]slot
	hists    map[string]*histogram
}

type histogram struct {
	max     int
	buckets []slot
}

// NewCollector creates a collector with one slot per thread id in [0, threads).
func NewCollector(threads int) *Collector {
	if threads < 1 {
		threads = 1
	}
	return &Collector{
		threads:  threads,
		counters: make(map[string][]slot),
		hists:    make(map[string]*histogram),
	}
}

// Threads returns the number of thread slots.
func (c *Collector) Threads() int {
	return c.threads
}

// Accessor returns the handle for the named counter, creating it on first use.
func (c *Collector) Accessor(name string) Accessor {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.counters[name]
	if !ok {
		slots = make([]slot, c.threads)
		c.counters[name] = slots
	}
	return Accessor{slots: slots}
}

// HistAccessor returns the handle for the named histogram with buckets 0..max.
// The bound of the first registration wins.
func (c *Collector) HistAccessor(name string, max int) HistAccessor {
	if max < 0 {
		max = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hists[name]
	if !ok {
		h = &histogram{max: max, buckets: make([]slot, c.threads*(max+1))}
		c.hists[name] = h
	}
	return HistAccessor{max: h.max, buckets: h.buckets}
}

// Combine sums every counter across threads.
func (c *Collector) Combine() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Snapshot, len(c.counters))
	for name, slots := range c.counters {
		var sum uint64
		for i := range slots {
			sum += slots[i].Load()
		}
		out[name] = sum
	}
	return out
}

// CombineHist sums every histogram across threads.
func (c *Collector) CombineHist() HistSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(HistSnapshot, len(c.hists))
	for name, h := range c.hists {
		width := h.max + 1
		sums := make([]uint64, width)
		for tid := 0; tid < c.threads; tid++ {
			for b := 0; b < width; b++ {
				sums[b] += h.buckets[tid*width+b].Load()
			}
		}
		out[name] = sums
	}
	return out
}

// Reset zeroes all counters and histograms.
func (c *Collector) Reset() {
	for tid := 0; tid < c.threads; tid++ {
		c.ResetThread(tid)
	}
}

// ResetThread zeroes the slots owned by thread tid.
func (c *Collector) ResetThread(tid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, slots := range c.counters {
		slots[tid].Store(0)
	}
	for _, h := range c.hists {
		width := h.max + 1
		for b := 0; b < width; b++ {
			h.buckets[tid*width+b].Store(0)
		}
	}
}
