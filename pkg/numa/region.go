package numa

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// Backend selects where regions live.
type Backend string

const (
	// BackendMmap uses anonymous mappings bound to the target node.
	BackendMmap Backend = "mmap"
	// BackendHeap uses ordinary Go slices. Node placement is left to first touch.
	BackendHeap Backend = "heap"
)

const wordSize = int(unsafe.Sizeof(uint64(0)))

// Region is a block of atomic 64-bit words placed on one node.
type Region struct {
	node    int
	words   []atomic.Uint64
	mapping mmap.MMap
	freed   atomic.Bool
}

// Node returns the node the region was allocated for.
func (r *Region) Node() int {
	return r.node
}

// Words returns the region's cells.
func (r *Region) Words() []atomic.Uint64 {
	return r.words
}

// Free releases the region. Calling it twice is an error.
func (r *Region) Free() error {
	if !r.freed.CompareAndSwap(false, true) {
		return apperrors.Newf(apperrors.CodeAllocationError, "region on node %d freed twice", r.node)
	}
	r.words = nil
	if r.mapping == nil {
		return nil
	}
	m := r.mapping
	r.mapping = nil
	if err := m.Unmap(); err != nil {
		return apperrors.Wrap(apperrors.CodeAllocationError, "munmap", err)
	}
	return nil
}

func allocateRegion(backend Backend, node, words int, logger utils.Logger) (*Region, error) {
	if words <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "region size %d must be positive", words)
	}
	if backend == BackendHeap {
		return &Region{node: node, words: make([]atomic.Uint64, words)}, nil
	}

	m, err := mmap.MapRegion(nil, words*wordSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAllocationError, "anonymous mmap", err)
	}
	if err := bindToNode(m, node); err != nil {
		logger.Debug("mbind to node %d failed, relying on first touch: %v", node, err)
	}
	if err := adviseHugePages(m); err != nil {
		logger.Debug("madvise hugepage failed: %v", err)
	}
	cells := unsafe.Slice((*atomic.Uint64)(unsafe.Pointer(&m[0])), words)
	return &Region{node: node, words: cells, mapping: m}, nil
}

// Arena owns every region allocated through it and releases them together.
// A DSU instance holds one arena for its whole lifetime.
type Arena struct {
	alloc Allocator

	mu      sync.Mutex
	regions []*Region
	closed  bool
	once    sync.Once
	err     error
}

// NewArena creates an arena drawing from alloc.
func NewArena(alloc Allocator) *Arena {
	return &Arena{alloc: alloc}
}

// Alloc allocates words cells on node and returns them.
func (a *Arena) Alloc(node, words int) ([]atomic.Uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, apperrors.New(apperrors.CodeAllocationError, "arena is closed")
	}
	r, err := a.alloc.Allocate(node, words)
	if err != nil {
		return nil, err
	}
	a.regions = append(a.regions, r)
	return r.Words(), nil
}

// Len returns the number of live regions.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.regions)
}

// Close frees all regions exactly once. Later calls return the first result.
func (a *Arena) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.closed = true
		var errs []error
		for _, r := range a.regions {
			if err := r.Free(); err != nil {
				errs = append(errs, err)
			}
		}
		a.regions = nil
		a.err = errors.Join(errs...)
	})
	return a.err
}
