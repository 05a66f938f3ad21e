package dsu

import (
	"sync/atomic"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/numa"
)

// table holds one replica of every cell per NUMA node. Replica i is
// allocated from node i's memory and lives until the arena is closed.
type table struct {
	size     uint64
	replicas [][]atomic.Uint64
	// owner is the initial owner of each vertex, restored by reset.
	owner []uint8
}

func newTable(arena *numa.Arena, nodes int, size uint64) (*table, error) {
	t := &table{
		size:     size,
		replicas: make([][]atomic.Uint64, nodes),
		owner:    make([]uint8, size),
	}
	for node := 0; node < nodes; node++ {
		cells, err := arena.Alloc(node, int(size))
		if err != nil {
			return nil, err
		}
		t.replicas[node] = cells
	}
	for v := range t.owner {
		t.owner[v] = uint8(v % nodes)
	}
	t.reset()
	return t, nil
}

func (t *table) nodes() int {
	return len(t.replicas)
}

func (t *table) load(node int, v uint64) word {
	return word(t.replicas[node][v].Load())
}

func (t *table) cas(node int, v uint64, old, new word) bool {
	return t.replicas[node][v].CompareAndSwap(uint64(old), uint64(new))
}

// store is only used where the caller is the sole writer of the cell.
func (t *table) store(node int, v uint64, w word) {
	t.replicas[node][v].Store(uint64(w))
}

func (t *table) initial(v uint64) word {
	return pack(v, nodeBit(int(t.owner[v])), true)
}

// reset makes every vertex a finalized root owned by its assigned node.
func (t *table) reset() {
	for v := uint64(0); v < t.size; v++ {
		w := uint64(t.initial(v))
		for node := range t.replicas {
			t.replicas[node][v].Store(w)
		}
	}
}

func (t *table) setOwner(v uint64, node int) error {
	if node < 0 || node >= t.nodes() {
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"owner node %d of vertex %d is outside [0, %d)", node, v, t.nodes())
	}
	t.owner[v] = uint8(node)
	w := uint64(t.initial(v))
	for n := range t.replicas {
		t.replicas[n][v].Store(w)
	}
	return nil
}
