package dsu

import "github.com/numa-dsu/pkg/numa"

func (d *numaDSU) union(th numa.Thread, u, v uint64) {
	wired := d.wire != nil
	for attempt := 1; ; attempt++ {
		wu := d.find(th, u, wired)
		wv := d.find(th, v, wired)
		ru, rv := wu.parent(), wv.parent()
		if ru == rv {
			d.m.unionAttempts.Observe(attempt, th.ID)
			return
		}

		// The larger root becomes the child, so ids strictly decrease
		// along every path and no cycle can form.
		child, parent, cw, pw := ru, rv, wu, wv
		if ru < rv {
			child, parent, cw, pw = rv, ru, wv, wu
		}

		var linked bool
		if d.opts.Ownership == OwnershipLazy {
			linked = d.linkLazy(th, child, parent, cw, pw)
		} else {
			linked = d.linkEager(th, child, parent, cw)
		}
		if linked {
			d.m.unionAttempts.Observe(attempt, th.ID)
			return
		}
		d.m.unionRetries.Inc(1, th.ID)
		u, v = ru, rv
	}
}

// linkEager commits child -> parent with one CAS on the owner replica of
// child, which is the linearization point, then repoints every other replica
// that still shows child as a root. cw is child's root word as read by find.
func (d *numaDSU) linkEager(th numa.Thread, child, parent uint64, cw word) bool {
	owner := cw.anyOwner()
	ok := d.t.cas(owner, child, cw, pack(parent, cw.owners(), true))
	d.m.cas(th.ID, owner != th.Node, ok)
	if !ok {
		return false
	}

	for node := 0; node < d.t.nodes(); node++ {
		if node == owner {
			continue
		}
		d.propagate(th, node, child, parent)
	}
	return true
}

// propagate replaces a stale root view of child in node's replica.
// Compression may have already moved the cell, in which case it is left alone.
func (d *numaDSU) propagate(th numa.Thread, node int, child, parent uint64) {
	for {
		w := d.t.load(node, child)
		if !w.isRootOf(child) {
			return
		}
		ok := d.t.cas(node, child, w, pack(parent, w.owners()|nodeBit(node), true))
		d.m.cas(th.ID, node != th.Node, ok)
		if ok {
			return
		}
	}
}
