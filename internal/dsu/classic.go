package dsu

import (
	"sync/atomic"

	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
)

// classicDSU is the NUMA-oblivious lock-free Union-Find: one parent array on
// node 0 shared by every thread. Accesses from other nodes count as remote.
type classicDSU struct {
	opts   Options
	name   string
	arena  *numa.Arena
	parent []atomic.Uint64
	m      engineMetrics
}

func newClassic(ctx numa.Context, size uint64, opts Options) (*classicDSU, error) {
	arena := numa.NewArena(ctx)
	parent, err := arena.Alloc(0, int(size))
	if err != nil {
		_ = arena.Close()
		return nil, err
	}
	d := &classicDSU{
		opts:   opts,
		name:   ClassName(opts),
		arena:  arena,
		parent: parent,
		m:      newEngineMetrics(ctx.MaxConcurrency(), opts),
	}
	d.ReInit()
	return d, nil
}

func (d *classicDSU) ReInit() {
	for v := range d.parent {
		d.parent[v].Store(uint64(v))
	}
}

// SetOwner has no effect: there is a single table.
func (d *classicDSU) SetOwner(uint64, int) error { return nil }

func (d *classicDSU) GoAway(numa.Thread) {}

func (d *classicDSU) load(th numa.Thread, v uint64) uint64 {
	d.m.read(th.ID, th.Node != 0)
	return d.parent[v].Load()
}

func (d *classicDSU) find(th numa.Thread, u uint64) uint64 {
	cur := u
	depth := 0
	for {
		p := d.load(th, cur)
		if p == cur {
			d.m.findDepth.Observe(depth, th.ID)
			return cur
		}
		gp := d.load(th, p)
		if gp == p {
			d.m.findDepth.Observe(depth+1, th.ID)
			return p
		}
		if d.opts.Compaction {
			ok := d.parent[cur].CompareAndSwap(p, gp)
			d.m.cas(th.ID, th.Node != 0, ok)
			if ok {
				d.m.compressions.Inc(1, th.ID)
			}
		}
		if d.opts.Compression == CompressionHalving {
			cur = gp
			depth += 2
		} else {
			cur = p
			depth++
		}
	}
}

func (d *classicDSU) Find(th numa.Thread, u uint64) uint64 {
	return d.find(th, u)
}

func (d *classicDSU) Union(th numa.Thread, u, v uint64) {
	for attempt := 1; ; attempt++ {
		ru, rv := d.find(th, u), d.find(th, v)
		if ru == rv {
			d.m.unionAttempts.Observe(attempt, th.ID)
			return
		}
		child, parent := ru, rv
		if ru < rv {
			child, parent = rv, ru
		}
		ok := d.parent[child].CompareAndSwap(child, parent)
		d.m.cas(th.ID, th.Node != 0, ok)
		if ok {
			d.m.unionAttempts.Observe(attempt, th.ID)
			return
		}
		d.m.unionRetries.Inc(1, th.ID)
		u, v = ru, rv
	}
}

func (d *classicDSU) SameSet(th numa.Thread, u, v uint64) bool {
	for {
		ru, rv := d.find(th, u), d.find(th, v)
		if ru == rv {
			return true
		}
		if d.load(th, ru) == ru {
			return false
		}
		u, v = ru, rv
	}
}

func (d *classicDSU) ClassName() string {
	return d.name
}

func (d *classicDSU) ResetMetrics() {
	d.m.reset()
}

func (d *classicDSU) CollectMetrics() metrics.Snapshot {
	return d.m.snapshot()
}

func (d *classicDSU) CollectHistMetrics() metrics.HistSnapshot {
	return d.m.histSnapshot()
}

func (d *classicDSU) Close() error {
	return d.arena.Close()
}
