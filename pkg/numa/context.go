// Package numa provides the execution context the DSU engine runs in:
// NUMA node discovery, thread placement and pinning, and node-local memory.
package numa

// Thread identifies a worker. It is handed to every worker function started
// through a Context and passed explicitly to hot-path DSU operations.
type Thread struct {
	ID   int
	Node int
}

// Allocator hands out node-local memory regions.
type Allocator interface {
	// Allocate returns a zeroed region of words 64-bit cells placed on node.
	Allocate(node int, words int) (*Region, error)
}

// Context reports the machine shape and runs pinned worker threads.
type Context interface {
	Allocator

	// NodeCount is the number of NUMA nodes.
	NodeCount() int
	// MaxConcurrency is the largest thread count StartNThreads accepts.
	MaxConcurrency() int
	// NodeForThread returns the node thread tid is placed on.
	NodeForThread(tid int) int
	// ThreadsOnNode lists the thread ids placed on node, ascending.
	ThreadsOnNode(node int) []int
	// Thread returns the descriptor for tid.
	Thread(tid int) Thread
	// StartNThreads runs fn on n OS-locked goroutines with ids 0..n-1.
	StartNThreads(fn func(Thread), n int) error
	// Join waits for the threads started by the last StartNThreads.
	Join() error
}

// Run starts n threads on c and waits for them.
func Run(c Context, fn func(Thread), n int) error {
	if err := c.StartNThreads(fn, n); err != nil {
		return err
	}
	return c.Join()
}
