package dsu

import (
	"runtime"
	"sync/atomic"

	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/utils"
)

// Slot states. The zero value is closed so a fresh inbox refuses requests
// until its owner opens it on its first operation.
const (
	slotTagShift = 61
	slotPayload  = uint64(1)<<slotTagShift - 1

	tagClosed   uint64 = 0
	tagIdle     uint64 = 1
	tagRequest  uint64 = 2
	tagResponse uint64 = 3
	tagPoisoned uint64 = 4
)

func slotWord(tag, payload uint64) uint64 {
	return tag<<slotTagShift | payload&slotPayload
}

func slotTag(s uint64) uint64 {
	return s >> slotTagShift
}

// Words per cache line; every hot word in an inbox row gets its own line.
const lineWords = 8

// Inbox row layout, in cache lines: pending count, opened flag, then one
// slot per requester thread.
const (
	rowPending = 0
	rowOpened  = lineWords
	rowSlots   = 2 * lineWords
)

// wire is the helping mailbox. Thread h's inbox row lives on h's node and
// holds one single-slot mailbox for every possible requester.
type wire struct {
	d         *numaDSU
	ctx       numa.Context
	threads   int
	rows      [][]atomic.Uint64
	warnSpins int
	logger    utils.Logger
}

func newWire(d *numaDSU) (*wire, error) {
	threads := d.ctx.MaxConcurrency()
	w := &wire{
		d:         d,
		ctx:       d.ctx,
		threads:   threads,
		rows:      make([][]atomic.Uint64, threads),
		warnSpins: d.opts.WireWarnSpins,
		logger:    d.logger.WithField("component", "wire"),
	}
	for h := 0; h < threads; h++ {
		row, err := d.arena.Alloc(d.ctx.NodeForThread(h), rowSlots+threads*lineWords)
		if err != nil {
			return nil, err
		}
		w.rows[h] = row
	}
	return w, nil
}

func (w *wire) slot(helper, requester int) *atomic.Uint64 {
	return &w.rows[helper][rowSlots+requester*lineWords]
}

// open lets other threads post requests to th's inbox. Poisoned slots stay poisoned.
func (w *wire) open(th numa.Thread) {
	row := w.rows[th.ID]
	if row[rowOpened].Load() != 0 {
		return
	}
	for r := 0; r < w.threads; r++ {
		w.slot(th.ID, r).CompareAndSwap(slotWord(tagClosed, 0), slotWord(tagIdle, 0))
	}
	row[rowOpened].Store(1)
}

// serve answers every pending request in th's inbox with a wire-free find.
func (w *wire) serve(th numa.Thread) {
	if w.rows[th.ID][rowPending].Load() == 0 {
		return
	}
	for r := 0; r < w.threads; r++ {
		s := w.slot(th.ID, r)
		if cur := s.Load(); slotTag(cur) == tagRequest {
			w.answer(th, s, cur)
		}
	}
}

func (w *wire) answer(th numa.Thread, s *atomic.Uint64, req uint64) {
	root := w.d.find(th, req&slotPayload, false).parent()
	// Only the helper moves a slot out of the request state.
	s.Store(slotWord(tagResponse, root))
	w.rows[th.ID][rowPending].Add(^uint64(0))
	w.d.m.wireServed.Inc(1, th.ID)
}

// delegate asks a thread on node to find v's root. It fails without waiting
// when the chosen helper's slot is closed or poisoned.
func (w *wire) delegate(th numa.Thread, node int, v uint64) (uint64, bool) {
	helpers := w.ctx.ThreadsOnNode(node)
	if len(helpers) == 0 {
		w.d.m.wireFallbacks.Inc(1, th.ID)
		return 0, false
	}
	h := helpers[th.ID%len(helpers)]
	s := w.slot(h, th.ID)
	if !s.CompareAndSwap(slotWord(tagIdle, 0), slotWord(tagRequest, v)) {
		w.d.m.wireFallbacks.Inc(1, th.ID)
		return 0, false
	}
	w.rows[h][rowPending].Add(1)
	w.d.m.wireRequests.Inc(1, th.ID)
	return w.waitAndGet(th, h, s), true
}

// waitAndGet spins until the helper answers, serving th's own inbox
// meanwhile so two threads waiting on each other both make progress.
func (w *wire) waitAndGet(th numa.Thread, helper int, s *atomic.Uint64) uint64 {
	for spins := 1; ; spins++ {
		if cur := s.Load(); slotTag(cur) == tagResponse {
			s.Store(slotWord(tagIdle, 0))
			return cur & slotPayload
		}
		w.serve(th)
		if spins == w.warnSpins {
			w.logger.Warn("thread %d still waiting on thread %d after %d spins", th.ID, helper, spins)
		}
		runtime.Gosched()
	}
}

// goAway poisons every slot of th's inbox, answering requests that are
// still outstanding, and returns once no requester can be left waiting.
func (w *wire) goAway(th numa.Thread) {
	for {
		done := true
		for r := 0; r < w.threads; r++ {
			s := w.slot(th.ID, r)
			cur := s.Load()
			switch slotTag(cur) {
			case tagPoisoned:
			case tagRequest:
				w.answer(th, s, cur)
				done = false
			case tagIdle, tagClosed:
				if !s.CompareAndSwap(cur, slotWord(tagPoisoned, 0)) {
					done = false
				}
			default:
				// Response not collected yet.
				done = false
			}
		}
		if done {
			return
		}
		runtime.Gosched()
	}
}

// reset closes every inbox again. Not safe during operations.
func (w *wire) reset() {
	for _, row := range w.rows {
		for i := range row {
			row[i].Store(0)
		}
	}
}
