package dsu

import "github.com/numa-dsu/pkg/numa"

// cellView is what a thread learned about one vertex.
type cellView struct {
	// local is the calling node's replica, the expectation for compression CAS.
	local word
	// w is the effective cell after consulting the owner replica if needed.
	w      word
	remote bool
}

// resolve hides lazy links that are not committed yet. A non-final cell
// pointing away from v only counts once v's lock word commits to that parent.
func (d *numaDSU) resolve(v uint64, w word) word {
	if w.finalized() || w.isRootOf(v) {
		return w
	}
	if d.locks[v].Load() == committedTo(w.parent()) {
		return w
	}
	return pack(v, w.owners(), true)
}

// view reads v for th. The local replica suffices unless it shows v as a root
// it does not own; then the owner replica is consulted, or, with the wire on,
// a thread on the owner node is asked for v's root. In the latter case view
// returns jump=true and the root id in to, unless the root is v itself.
func (d *numaDSU) view(th numa.Thread, v uint64, wired bool, confirmed *uint64) (cv cellView, to uint64, jump bool) {
	local := d.t.load(th.Node, v)
	d.m.read(th.ID, false)
	w := d.resolve(v, local)
	if !w.isRootOf(v) || w.isOwner(th.Node) {
		return cellView{local: local, w: w}, 0, false
	}

	owner := w.anyOwner()
	if wired {
		// Root views of a vertex are identical in every replica until it is
		// linked, so the local word stands in for the owner's.
		if v == *confirmed {
			return cellView{local: local, w: w}, 0, false
		}
		if r, ok := d.wire.delegate(th, owner, v); ok {
			*confirmed = r
			if r == v {
				return cellView{local: local, w: w}, 0, false
			}
			return cellView{}, r, true
		}
	}

	rw := d.resolve(v, d.t.load(owner, v))
	d.m.read(th.ID, true)
	return cellView{local: local, w: rw, remote: true}, 0, false
}

// find walks from u to its root and returns the root's word. Local cells
// are compressed toward grandparents as the walk goes.
func (d *numaDSU) find(th numa.Thread, u uint64, wired bool) word {
	cur := u
	confirmed := noVertex
	depth := 0
	for {
		cv, to, jump := d.view(th, cur, wired, &confirmed)
		if jump {
			cur = to
			depth++
			continue
		}
		p := cv.w.parent()
		if p == cur {
			d.m.findDepth.Observe(depth, th.ID)
			return cv.w
		}

		pv, to, jump := d.view(th, p, wired, &confirmed)
		if jump {
			cur = to
			depth += 2
			continue
		}
		gp := pv.w.parent()
		if gp == p {
			d.m.findDepth.Observe(depth+1, th.ID)
			return pv.w
		}

		if d.mayCompress(cv, pv) && cv.local.parent() != gp {
			nw := pack(gp, cv.local.owners()|nodeBit(th.Node), true)
			ok := d.t.cas(th.Node, cur, cv.local, nw)
			d.m.cas(th.ID, false, ok)
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

// mayCompress allows rewriting a local cell only when both hops were read
// locally, unless cross-node compression is enabled.
func (d *numaDSU) mayCompress(cv, pv cellView) bool {
	if !d.opts.Compaction {
		return false
	}
	return d.opts.CrossNodeCompression || (!cv.remote && !pv.remote)
}

// walkLocal follows finalized, locally owned cells of th's replica. It stops
// at the first cell it cannot trust locally and reports whether that vertex
// is a root confirmed by the local replica.
func (d *numaDSU) walkLocal(th numa.Thread, u uint64) (uint64, bool) {
	cur := u
	for {
		w := d.t.load(th.Node, cur)
		d.m.read(th.ID, false)
		if !w.finalized() || !w.isOwner(th.Node) {
			return cur, false
		}
		if w.isRootOf(cur) {
			return cur, true
		}
		cur = w.parent()
	}
}

// stillRoot re-reads r authoritatively.
func (d *numaDSU) stillRoot(th numa.Thread, r uint64) bool {
	w := d.resolve(r, d.t.load(th.Node, r))
	d.m.read(th.ID, false)
	if !w.isRootOf(r) {
		return false
	}
	if w.isOwner(th.Node) {
		return true
	}
	rw := d.resolve(r, d.t.load(w.anyOwner(), r))
	d.m.read(th.ID, true)
	return rw.isRootOf(r)
}

func (d *numaDSU) sameSet(th numa.Thread, u, v uint64) bool {
	if u == v {
		return true
	}

	// Any finalized cell names an ancestor, so equal parents mean one set.
	lu, lv := d.t.load(th.Node, u), d.t.load(th.Node, v)
	d.m.read(th.ID, false)
	d.m.read(th.ID, false)
	if lu.finalized() && lv.finalized() && lu.parent() == lv.parent() {
		return true
	}

	a, aRoot := d.walkLocal(th, u)
	b, bRoot := d.walkLocal(th, v)
	if a == b {
		return true
	}
	// a was a root before b was read; if it still is, both were distinct roots then.
	if aRoot && bRoot && d.stillRoot(th, a) {
		return false
	}

	wired := d.wire != nil
	for {
		ru := d.find(th, a, wired).parent()
		rv := d.find(th, b, wired).parent()
		if ru == rv {
			return true
		}
		if d.stillRoot(th, ru) {
			return false
		}
		a, b = ru, rv
	}
}

const noVertex = ^uint64(0)
