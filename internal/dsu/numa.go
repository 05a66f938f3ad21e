package dsu

import (
	"sync/atomic"

	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/utils"
)

// numaDSU keeps one replica of every cell per node. A cell whose parent is
// not itself is always a valid ancestor pointer in any replica. The only
// stale information is a root view in a replica that does not own the
// vertex; the owning replica is authoritative for whether a vertex is a root.
type numaDSU struct {
	ctx    numa.Context
	opts   Options
	name   string
	arena  *numa.Arena
	t      *table
	locks  []atomic.Uint64 // lazy ownership only
	wire   *wire           // nil unless opts.Wire
	m      engineMetrics
	logger utils.Logger
}

func newNUMA(ctx numa.Context, size uint64, opts Options) (*numaDSU, error) {
	arena := numa.NewArena(ctx)
	t, err := newTable(arena, ctx.NodeCount(), size)
	if err != nil {
		_ = arena.Close()
		return nil, err
	}

	d := &numaDSU{
		ctx:   ctx,
		opts:  opts,
		name:  ClassName(opts),
		arena: arena,
		t:     t,
		m:     newEngineMetrics(ctx.MaxConcurrency(), opts),
	}
	d.logger = opts.Logger.WithField("dsu", d.name)

	if opts.Ownership == OwnershipLazy {
		if d.locks, err = arena.Alloc(0, int(size)); err != nil {
			_ = arena.Close()
			return nil, err
		}
	}
	if opts.Wire {
		if d.wire, err = newWire(d); err != nil {
			_ = arena.Close()
			return nil, err
		}
	}
	d.logger.Debug("constructed %d vertices on %d nodes", size, ctx.NodeCount())
	return d, nil
}

func (d *numaDSU) ReInit() {
	d.t.reset()
	for i := range d.locks {
		d.locks[i].Store(lockFree)
	}
	if d.wire != nil {
		d.wire.reset()
	}
}

func (d *numaDSU) SetOwner(v uint64, node int) error {
	return d.t.setOwner(v, node)
}

func (d *numaDSU) Find(th numa.Thread, u uint64) uint64 {
	d.enter(th)
	root := d.find(th, u, d.wire != nil)
	return root.parent()
}

func (d *numaDSU) Union(th numa.Thread, u, v uint64) {
	d.enter(th)
	d.union(th, u, v)
}

func (d *numaDSU) SameSet(th numa.Thread, u, v uint64) bool {
	d.enter(th)
	return d.sameSet(th, u, v)
}

func (d *numaDSU) GoAway(th numa.Thread) {
	if d.wire != nil {
		d.wire.goAway(th)
	}
}

func (d *numaDSU) ClassName() string {
	return d.name
}

func (d *numaDSU) ResetMetrics() {
	d.m.reset()
}

func (d *numaDSU) CollectMetrics() metrics.Snapshot {
	return d.m.snapshot()
}

func (d *numaDSU) CollectHistMetrics() metrics.HistSnapshot {
	return d.m.histSnapshot()
}

func (d *numaDSU) Close() error {
	return d.arena.Close()
}

// enter runs at the start of every public operation so a thread answers
// pending wire requests while it is active.
func (d *numaDSU) enter(th numa.Thread) {
	if d.wire != nil {
		d.wire.open(th)
		d.wire.serve(th)
	}
}
