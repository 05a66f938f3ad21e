// Package workload generates, caches and splits the edge streams the
// benchmark feeds into a DSU.
package workload

import (
	"fmt"
)

// Edge is an undirected pair of vertex ids.
type Edge struct {
	U, V uint64
}

// OpKind is the operation applied to an edge.
type OpKind uint8

const (
	// OpUnion merges the two endpoints.
	OpUnion OpKind = iota
	// OpSameSet queries whether the endpoints are connected.
	OpSameSet
)

func (k OpKind) String() string {
	switch k {
	case OpUnion:
		return "union"
	case OpSameSet:
		return "same_set"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one request a benchmark thread issues.
type Op struct {
	Kind OpKind
	U, V uint64
}

// Params identifies a generated edge list. Equal params produce equal edges.
type Params struct {
	Generator string  `json:"generator"`
	Vertices  uint64  `json:"vertices"`
	Edges     uint64  `json:"edges"`
	Nodes     int     `json:"nodes"`
	CrossProb float64 `json:"cross_node_prob"`
	Seed      int64   `json:"seed"`
}

// Key is the cache key of the edge list. The operation mix is not part of it.
func (p Params) Key() string {
	return fmt.Sprintf("%s/v%d/e%d/n%d/x%g/s%d", p.Generator, p.Vertices, p.Edges, p.Nodes, p.CrossProb, p.Seed)
}

// Workload is a generated edge list turned into operations.
type Workload struct {
	Params     Params
	UnionRatio float64
	Edges      []Edge
	Ops        []Op
}

// Unions counts union operations.
func (w *Workload) Unions() int {
	n := 0
	for _, op := range w.Ops {
		if op.Kind == OpUnion {
			n++
		}
	}
	return n
}

// Split deals the operations round-robin to n threads, so every thread sees
// the same proportion of each generator region.
func (w *Workload) Split(n int) [][]Op {
	if n < 1 {
		n = 1
	}
	parts := make([][]Op, n)
	for t := range parts {
		parts[t] = make([]Op, 0, len(w.Ops)/n+1)
	}
	for i, op := range w.Ops {
		parts[i%n] = append(parts[i%n], op)
	}
	return parts
}
