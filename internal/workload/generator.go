package workload

import (
	"context"
	"math"
	"math/rand/v2"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/parallel"
)

// Generator names.
const (
	GeneratorRandom    = "random"
	GeneratorGrid      = "grid"
	GeneratorClustered = "clustered"
)

// ChunkEdges is the number of edges generated from one seeded stream.
const ChunkEdges = 1 << 16

// Generate builds the edge list described by p. Chunks of ChunkEdges edges are
// produced in parallel, each from its own stream seeded by (Seed, chunk index),
// so the result does not depend on the worker count.
func Generate(ctx context.Context, p Params, pool parallel.PoolConfig) ([]Edge, error) {
	if p.Vertices == 0 {
		return nil, apperrors.New(apperrors.CodeWorkloadError, "workload needs at least one vertex")
	}

	var fill func(r *rand.Rand, out []Edge)
	switch p.Generator {
	case GeneratorRandom:
		fill = func(r *rand.Rand, out []Edge) {
			for i := range out {
				out[i] = Edge{r.Uint64N(p.Vertices), r.Uint64N(p.Vertices)}
			}
		}
	case GeneratorGrid:
		return gridEdges(p), nil
	case GeneratorClustered:
		nodes := uint64(max(p.Nodes, 1))
		fill = func(r *rand.Rand, out []Edge) {
			for i := range out {
				n := r.Uint64N(nodes)
				u := pickOnNode(r, p.Vertices, nodes, n)
				v := pickOnNode(r, p.Vertices, nodes, n)
				if r.Float64() < p.CrossProb {
					v = r.Uint64N(p.Vertices)
				}
				out[i] = Edge{u, v}
			}
		}
	default:
		return nil, apperrors.Newf(apperrors.CodeWorkloadError, "unknown generator %q", p.Generator)
	}

	edges := make([]Edge, p.Edges)
	err := parallel.NewChunkProcessor(pool).Process(ctx, p.Edges, ChunkEdges, func(ctx context.Context, c parallel.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := rand.New(rand.NewPCG(uint64(p.Seed), uint64(c.Index)))
		fill(r, edges[c.Start:c.End])
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkloadError, "edge generation failed", err)
	}
	return edges, nil
}

// pickOnNode returns a uniform vertex v with v % nodes == n, matching the
// default ownership, or any vertex if node n owns none.
func pickOnNode(r *rand.Rand, vertices, nodes, n uint64) uint64 {
	if n >= vertices {
		return r.Uint64N(vertices)
	}
	count := (vertices-n-1)/nodes + 1
	return n + r.Uint64N(count)*nodes
}

// gridEdges links each cell of a side x side lattice to its right and lower
// neighbour, then shuffles the list. Edges caps the length when non-zero.
func gridEdges(p Params) []Edge {
	side := uint64(math.Sqrt(float64(p.Vertices)))
	for (side+1)*(side+1) <= p.Vertices {
		side++
	}

	edges := make([]Edge, 0, 2*side*side)
	for row := uint64(0); row < side; row++ {
		for col := uint64(0); col < side; col++ {
			v := row*side + col
			if col+1 < side {
				edges = append(edges, Edge{v, v + 1})
			}
			if row+1 < side {
				edges = append(edges, Edge{v, v + side})
			}
		}
	}

	r := rand.New(rand.NewPCG(uint64(p.Seed), math.MaxUint64))
	r.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	if p.Edges > 0 && uint64(len(edges)) > p.Edges {
		edges = edges[:p.Edges]
	}
	return edges
}

// Mix turns edges into operations: each edge becomes a union with probability
// unionRatio and a same-set query otherwise.
func Mix(edges []Edge, unionRatio float64, seed int64) []Op {
	r := rand.New(rand.NewPCG(uint64(seed), 0x6d6978))
	ops := make([]Op, len(edges))
	for i, e := range edges {
		kind := OpSameSet
		if r.Float64() < unionRatio {
			kind = OpUnion
		}
		ops[i] = Op{Kind: kind, U: e.U, V: e.V}
	}
	return ops
}
