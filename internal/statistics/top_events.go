package statistics

import (
	"sort"

	"github.com/numa-dsu/pkg/metrics"
)

// TopEventsCalculator ranks metric counters by how often they fired.
type TopEventsCalculator struct {
	topN int
}

// TopEventsOption configures the TopEventsCalculator.
type TopEventsOption func(*TopEventsCalculator)

// WithTopN sets the number of events to return. 0 returns all.
func WithTopN(n int) TopEventsOption {
	return func(c *TopEventsCalculator) {
		c.topN = n
	}
}

// NewTopEventsCalculator creates a new TopEventsCalculator.
func NewTopEventsCalculator(opts ...TopEventsOption) *TopEventsCalculator {
	c := &TopEventsCalculator{topN: 5}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EventEntry is one counter and its share of all events.
type EventEntry struct {
	Name    string  `json:"name"`
	Count   uint64  `json:"count"`
	Percent float64 `json:"percent"`
}

// Calculate ranks the non-zero counters of snap, largest first.
func (c *TopEventsCalculator) Calculate(snap metrics.Snapshot) []EventEntry {
	var total uint64
	entries := make([]EventEntry, 0, len(snap))
	for name, n := range snap {
		if n == 0 {
			continue
		}
		total += n
		entries = append(entries, EventEntry{Name: name, Count: n})
	}
	for i := range entries {
		entries[i].Percent = float64(entries[i].Count) / float64(total) * 100
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if c.topN > 0 && len(entries) > c.topN {
		entries = entries[:c.topN]
	}
	return entries
}

// RemoteRatio returns remote reads over all reads, or 0 when nothing was read.
func RemoteRatio(snap metrics.Snapshot) float64 {
	local, remote := snap[metrics.LocalReads], snap[metrics.RemoteReads]
	if local+remote == 0 {
		return 0
	}
	return float64(remote) / float64(local+remote)
}
