package numa

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// Placement decides which node a thread id lands on.
type Placement string

const (
	// PlacementBlock fills node 0 first, then node 1, and so on.
	PlacementBlock Placement = "block"
	// PlacementRoundRobin assigns thread tid to node tid % nodes.
	PlacementRoundRobin Placement = "round_robin"
)

// Node is one NUMA node and the CPUs attached to it.
type Node struct {
	ID   int
	CPUs []int
}

// TopologyConfig configures a Topology.
type TopologyConfig struct {
	// Nodes simulates this many nodes when > 0; 0 detects from sysfs.
	Nodes int
	// Threads caps MaxConcurrency; 0 means one thread per CPU.
	Threads   int
	Placement Placement
	// Pin binds each worker to its node's CPUs.
	Pin     bool
	Backend Backend
	// SysfsRoot overrides DefaultSysfsRoot for detection.
	SysfsRoot string
	Logger    utils.Logger
}

// Topology is the Context implementation for real and simulated machines.
type Topology struct {
	nodes      []Node
	maxThreads int
	placement  Placement
	pin        bool
	backend    Backend
	logger     utils.Logger

	threadNode    []int
	nodeThreads   [][]int
	pinWarnedOnce sync.Once

	mu    sync.Mutex
	group *errgroup.Group
}

var _ Context = (*Topology)(nil)

// NewTopology builds a Topology from cfg.
func NewTopology(cfg TopologyConfig) (*Topology, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}

	var nodes []Node
	if cfg.Nodes > 0 {
		nodes = SimulatedNodes(cfg.Nodes, runtime.NumCPU())
	} else {
		detected, err := DetectNodes(cfg.SysfsRoot)
		if err != nil {
			logger.Warn("NUMA detection failed, assuming one node: %v", err)
			detected = SimulatedNodes(1, runtime.NumCPU())
		}
		nodes = detected
	}
	if len(nodes) > MaxNodes {
		return nil, apperrors.Newf(apperrors.CodeCapacityExceeded,
			"%d NUMA nodes exceed the supported maximum of %d", len(nodes), MaxNodes)
	}

	threads := cfg.Threads
	if threads <= 0 {
		for _, n := range nodes {
			threads += len(n.CPUs)
		}
		if threads == 0 {
			threads = runtime.NumCPU()
		}
	}

	placement := cfg.Placement
	if placement == "" {
		placement = PlacementBlock
	}
	if placement != PlacementBlock && placement != PlacementRoundRobin {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown placement %q", placement)
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendMmap
	}
	if backend != BackendMmap && backend != BackendHeap {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown memory backend %q", backend)
	}

	t := &Topology{
		nodes:      nodes,
		maxThreads: threads,
		placement:  placement,
		pin:        cfg.Pin,
		backend:    backend,
		logger:     logger.WithField("component", "numa"),
	}
	t.place()
	return t, nil
}

// Simulated returns an unpinned heap-backed topology with the given shape.
// Useful for tests and for running multi-node algorithms on one-node hosts.
func Simulated(nodes, threads int) *Topology {
	t := &Topology{
		nodes:      SimulatedNodes(nodes, threads),
		maxThreads: threads,
		placement:  PlacementRoundRobin,
		backend:    BackendHeap,
		logger:     &utils.NullLogger{},
	}
	t.place()
	return t
}

// SimulatedNodes splits cpus CPUs evenly over n nodes.
func SimulatedNodes(n, cpus int) []Node {
	if n < 1 {
		n = 1
	}
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i].ID = i
	}
	for c := 0; c < cpus; c++ {
		nodes[c%n].CPUs = append(nodes[c%n].CPUs, c)
	}
	return nodes
}

func (t *Topology) place() {
	n := len(t.nodes)
	perNode := (t.maxThreads + n - 1) / n
	t.threadNode = make([]int, t.maxThreads)
	t.nodeThreads = make([][]int, n)
	for tid := 0; tid < t.maxThreads; tid++ {
		var node int
		switch t.placement {
		case PlacementRoundRobin:
			node = tid % n
		default:
			node = tid / perNode
			if node >= n {
				node = n - 1
			}
		}
		t.threadNode[tid] = node
		t.nodeThreads[node] = append(t.nodeThreads[node], tid)
	}
}

// Nodes returns the node list.
func (t *Topology) Nodes() []Node {
	return t.nodes
}

// Placement returns the thread placement policy.
func (t *Topology) Placement() Placement {
	return t.placement
}

// NodeCount implements Context.
func (t *Topology) NodeCount() int {
	return len(t.nodes)
}

// MaxConcurrency implements Context.
func (t *Topology) MaxConcurrency() int {
	return t.maxThreads
}

// NodeForThread implements Context.
func (t *Topology) NodeForThread(tid int) int {
	return t.threadNode[tid]
}

// ThreadsOnNode implements Context.
func (t *Topology) ThreadsOnNode(node int) []int {
	return t.nodeThreads[node]
}

// Thread implements Context.
func (t *Topology) Thread(tid int) Thread {
	return Thread{ID: tid, Node: t.threadNode[tid]}
}

// StartNThreads implements Context.
func (t *Topology) StartNThreads(fn func(Thread), n int) error {
	if n < 1 || n > t.maxThreads {
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"thread count %d outside [1, %d]", n, t.maxThreads)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.group != nil {
		return apperrors.New(apperrors.CodeInvalidInput, "threads already running, call Join first")
	}

	g := new(errgroup.Group)
	for tid := 0; tid < n; tid++ {
		th := t.Thread(tid)
		g.Go(func() (err error) {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("thread %d panicked: %v", th.ID, r)
				}
			}()
			if t.pin {
				if perr := pinToCPUs(t.nodes[th.Node].CPUs); perr != nil {
					t.pinWarnedOnce.Do(func() {
						t.logger.Warn("CPU pinning unavailable, threads stay unpinned: %v", perr)
					})
				}
			}
			fn(th)
			return nil
		})
	}
	t.group = g
	return nil
}

// Join implements Context.
func (t *Topology) Join() error {
	t.mu.Lock()
	g := t.group
	t.group = nil
	t.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Run starts n threads and waits for them.
func (t *Topology) Run(fn func(Thread), n int) error {
	return Run(t, fn, n)
}

// Allocate implements Allocator.
func (t *Topology) Allocate(node int, words int) (*Region, error) {
	if node < 0 || node >= len(t.nodes) {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "node %d out of range", node)
	}
	return allocateRegion(t.backend, node, words, t.logger)
}
