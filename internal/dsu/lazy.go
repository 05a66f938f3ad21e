package dsu

import (
	"runtime"

	"github.com/numa-dsu/pkg/numa"
)

// Lock word states. The payload is the pending or committed parent.
const (
	lockFree      uint64 = 0
	lockLockedTag uint64 = 1 << 62
	lockCommitTag uint64 = 2 << 62
	lockTagMask   uint64 = 3 << 62
)

func lockedTo(parent uint64) uint64 {
	return lockLockedTag | parent
}

func committedTo(parent uint64) uint64 {
	return lockCommitTag | parent
}

func isLocked(lk uint64) bool {
	return lk&lockTagMask == lockLockedTag
}

// linkLazy links child under parent through child's lock word:
// Free -> Locked(parent), write non-final cells, Locked -> Committed(parent),
// then finalize. The commit is the linearization point. A thread that finds
// the lock taken waits for the commit and reports failure so the caller
// retries with fresh roots.
func (d *numaDSU) linkLazy(th numa.Thread, child, parent uint64, cw, pw word) bool {
	lk := &d.locks[child]
	if !lk.CompareAndSwap(lockFree, lockedTo(parent)) {
		d.m.cas(th.ID, th.Node != 0, false)
		spins := uint64(0)
		for isLocked(lk.Load()) {
			spins++
			if d.wire != nil {
				d.wire.serve(th)
			}
			runtime.Gosched()
		}
		d.m.lockSpins.Inc(spins, th.ID)
		return false
	}
	d.m.cas(th.ID, th.Node != 0, true)

	// The owner replicas plus the new root's owner, so threads on the
	// node that now owns the tree resolve child locally.
	owners := cw.owners()
	targets := owners | nodeBit(pw.anyOwner())

	// While the lock is held nobody else writes child's cells: every reader
	// still resolves child as a root and compression only touches non-roots.
	for node := 0; node < d.t.nodes(); node++ {
		if targets&nodeBit(node) == 0 {
			continue
		}
		d.t.store(node, child, pack(parent, owners|nodeBit(node), false))
		d.m.cas(th.ID, node != th.Node, true)
	}

	lk.CompareAndSwap(lockedTo(parent), committedTo(parent))

	for node := 0; node < d.t.nodes(); node++ {
		if targets&nodeBit(node) == 0 {
			continue
		}
		d.finalize(th, node, child, parent)
	}
	return true
}

// finalize sets the finalized bit on child's cell unless compression
// already replaced it.
func (d *numaDSU) finalize(th numa.Thread, node int, child, parent uint64) {
	for {
		w := d.t.load(node, child)
		if w.finalized() || w.parent() != parent {
			return
		}
		ok := d.t.cas(node, child, w, w.withFinal())
		d.m.cas(th.ID, node != th.Node, ok)
		if ok {
			return
		}
	}
}
