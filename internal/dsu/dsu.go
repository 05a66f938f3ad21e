// Package dsu implements concurrent Union-Find over per-node replicated
// parent tables, plus NUMA-oblivious and sequential baselines.
//
// Vertex ids are dense in [0, size). Passing an id outside that range is a
// caller error and is not checked on the hot path. Linking always places the
// larger root under the smaller one, so the representative of every set is its
// smallest member for all variants.
//
// CAS loops have no retry bound. The lazy ownership protocol and the wire
// mailbox add spin waits with no fairness guarantee, so a thread can starve
// under adversarial scheduling.
package dsu

import (
	"fmt"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
)

// DSU is the contract every algorithm variant implements.
type DSU interface {
	// ReInit makes every vertex its own root again with the last assigned owners.
	// It must not run concurrently with any other operation.
	ReInit()
	// Union merges the sets of u and v.
	Union(th numa.Thread, u, v uint64)
	// SameSet reports whether u and v are in the same set. It never returns
	// false for a Union that completed before the call began.
	SameSet(th numa.Thread, u, v uint64) bool
	// Find returns the representative of u as seen by th.
	Find(th numa.Thread, u uint64) uint64
	// SetOwner assigns the authoritative node of v. Call before any Union.
	// A node outside the execution context is rejected.
	SetOwner(v uint64, node int) error
	// GoAway retires th from the wire mailbox. Call once per thread when its work ends.
	GoAway(th numa.Thread)
	ClassName() string

	ResetMetrics()
	CollectMetrics() metrics.Snapshot
	CollectHistMetrics() metrics.HistSnapshot

	// Close releases node memory. The DSU must not be used afterwards.
	Close() error
}

// New constructs the variant selected by opts for size vertices.
func New(ctx numa.Context, size uint64, opts Options) (DSU, error) {
	if size > MaxSize {
		return nil, apperrors.Newf(apperrors.CodeCapacityExceeded,
			"size %d exceeds the maximum of %d vertices", size, MaxSize)
	}
	if size == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "size must be positive")
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if n := ctx.NodeCount(); n < 1 || n > OwnerBits {
		return nil, apperrors.Newf(apperrors.CodeCapacityExceeded,
			"%d NUMA nodes do not fit the %d-bit owner mask", n, OwnerBits)
	}

	var (
		d   DSU
		err error
	)
	switch opts.Algorithm {
	case AlgorithmClassic:
		d, err = newClassic(ctx, size, opts)
	case AlgorithmSequential:
		d = newSequential(ctx, size, opts)
	default:
		d, err = newNUMA(ctx, size, opts)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ClassName formats the variant name used in reports, e.g.
// DSU_NUMA_Eager_Halving_XNode_Wire.
func ClassName(opts Options) string {
	if err := opts.normalize(); err != nil {
		return "DSU_Invalid"
	}
	switch opts.Algorithm {
	case AlgorithmSequential:
		return "DSU_Sequential"
	case AlgorithmClassic:
		return fmt.Sprintf("DSU_Classic_%s%s", policyName(opts.Compression), compactionSuffix(opts))
	}

	name := fmt.Sprintf("DSU_NUMA_%s_%s", titled(string(opts.Ownership)), policyName(opts.Compression))
	if opts.CrossNodeCompression {
		name += "_XNode"
	}
	if opts.Wire {
		name += "_Wire"
	}
	return name + compactionSuffix(opts)
}

func policyName(c Compression) string {
	return titled(string(c))
}

func compactionSuffix(opts Options) string {
	if opts.Compaction {
		return ""
	}
	return "_NoCompaction"
}

func titled(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
