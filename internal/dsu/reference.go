package dsu

import (
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
)

// Reference is a plain single-threaded Union-Find with the same link rule as
// the concurrent variants, so its roots can be compared one to one.
type Reference struct {
	parent []uint64
}

// NewReference creates a reference structure of n singletons.
func NewReference(n uint64) *Reference {
	r := &Reference{parent: make([]uint64, n)}
	r.Reset()
	return r
}

// Reset makes every vertex a singleton again.
func (r *Reference) Reset() {
	for v := range r.parent {
		r.parent[v] = uint64(v)
	}
}

// Len returns the vertex count.
func (r *Reference) Len() uint64 {
	return uint64(len(r.parent))
}

// Find returns the smallest member of u's set.
func (r *Reference) Find(u uint64) uint64 {
	for r.parent[u] != u {
		r.parent[u] = r.parent[r.parent[u]]
		u = r.parent[u]
	}
	return u
}

// Union merges u's and v's sets and reports whether they were distinct.
func (r *Reference) Union(u, v uint64) bool {
	ru, rv := r.Find(u), r.Find(v)
	if ru == rv {
		return false
	}
	if ru < rv {
		r.parent[rv] = ru
	} else {
		r.parent[ru] = rv
	}
	return true
}

// SameSet reports whether u and v share a set.
func (r *Reference) SameSet(u, v uint64) bool {
	return r.Find(u) == r.Find(v)
}

// Components counts the distinct sets.
func (r *Reference) Components() uint64 {
	var n uint64
	for v := range r.parent {
		if r.parent[v] == uint64(v) {
			n++
		}
	}
	return n
}

// sequentialDSU adapts Reference to the DSU contract. Not safe for concurrent use.
type sequentialDSU struct {
	ref *Reference
	m   engineMetrics
}

func newSequential(ctx numa.Context, size uint64, opts Options) *sequentialDSU {
	return &sequentialDSU{
		ref: NewReference(size),
		m:   newEngineMetrics(ctx.MaxConcurrency(), opts),
	}
}

func (d *sequentialDSU) ReInit()                    { d.ref.Reset() }
func (d *sequentialDSU) SetOwner(uint64, int) error { return nil }
func (d *sequentialDSU) GoAway(numa.Thread)         {}
func (d *sequentialDSU) ClassName() string          { return "DSU_Sequential" }
func (d *sequentialDSU) ResetMetrics()              { d.m.reset() }
func (d *sequentialDSU) Close() error               { return nil }

func (d *sequentialDSU) Find(_ numa.Thread, u uint64) uint64 {
	return d.ref.Find(u)
}

func (d *sequentialDSU) Union(th numa.Thread, u, v uint64) {
	d.ref.Union(u, v)
	d.m.unionAttempts.Observe(1, th.ID)
}

func (d *sequentialDSU) SameSet(_ numa.Thread, u, v uint64) bool {
	return d.ref.SameSet(u, v)
}

func (d *sequentialDSU) CollectMetrics() metrics.Snapshot {
	return d.m.snapshot()
}

func (d *sequentialDSU) CollectHistMetrics() metrics.HistSnapshot {
	return d.m.histSnapshot()
}
