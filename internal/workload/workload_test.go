package workload

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numa-dsu/pkg/compression"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/parallel"
	"github.com/numa-dsu/pkg/utils"
)

func params(gen string) Params {
	return Params{Generator: gen, Vertices: 1000, Edges: 3 * ChunkEdges / 2, Nodes: 4, CrossProb: 0.2, Seed: 42}
}

func TestGenerate_DeterministicAcrossWorkers(t *testing.T) {
	for _, gen := range []string{GeneratorRandom, GeneratorClustered, GeneratorGrid} {
		t.Run(gen, func(t *testing.T) {
			a, err := Generate(context.Background(), params(gen), parallel.PoolConfig{MaxWorkers: 1})
			require.NoError(t, err)
			b, err := Generate(context.Background(), params(gen), parallel.PoolConfig{MaxWorkers: 8})
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	p := params(GeneratorRandom)
	a, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	p.Seed++
	b, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerate_Random(t *testing.T) {
	p := params(GeneratorRandom)
	edges, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	require.Len(t, edges, int(p.Edges))
	for _, e := range edges {
		require.Less(t, e.U, p.Vertices)
		require.Less(t, e.V, p.Vertices)
	}
}

func TestGenerate_ClusteredStaysOnNode(t *testing.T) {
	p := params(GeneratorClustered)
	p.CrossProb = 0
	edges, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	for _, e := range edges {
		require.Less(t, e.U, p.Vertices)
		require.Equal(t, e.U%4, e.V%4, "edge %v crosses nodes", e)
	}
}

func TestGenerate_ClusteredCrossesNodes(t *testing.T) {
	p := params(GeneratorClustered)
	p.CrossProb = 1
	edges, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	crossing := 0
	for _, e := range edges {
		if e.U%4 != e.V%4 {
			crossing++
		}
	}
	assert.Greater(t, crossing, len(edges)/2)
}

func TestGenerate_Grid(t *testing.T) {
	p := Params{Generator: GeneratorGrid, Vertices: 10, Seed: 1}
	edges, err := Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	// A 3x3 lattice has 12 edges.
	require.Len(t, edges, 12)
	for _, e := range edges {
		d := e.V - e.U
		assert.True(t, d == 1 || d == 3, "edge %v is not a lattice edge", e)
		assert.Less(t, e.V, uint64(9))
	}

	p.Edges = 5
	edges, err = Generate(context.Background(), p, parallel.DefaultPoolConfig())
	require.NoError(t, err)
	assert.Len(t, edges, 5)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"unknown generator", Params{Generator: "powerlaw", Vertices: 10}},
		{"no vertices", Params{Generator: GeneratorRandom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), tt.p, parallel.DefaultPoolConfig())
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeWorkloadError, apperrors.GetErrorCode(err))
		})
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, params(GeneratorRandom), parallel.DefaultPoolConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMix(t *testing.T) {
	edges := make([]Edge, 1000)
	for i := range edges {
		edges[i] = Edge{uint64(i), uint64(i + 1)}
	}

	tests := []struct {
		ratio    float64
		min, max int
	}{
		{0, 0, 0},
		{1, 1000, 1000},
		{0.5, 400, 600},
	}
	for _, tt := range tests {
		w := &Workload{Ops: Mix(edges, tt.ratio, 7)}
		assert.GreaterOrEqual(t, w.Unions(), tt.min, "ratio %v", tt.ratio)
		assert.LessOrEqual(t, w.Unions(), tt.max, "ratio %v", tt.ratio)
	}

	assert.Equal(t, Mix(edges, 0.5, 7), Mix(edges, 0.5, 7))
	assert.Equal(t, Op{Kind: OpUnion, U: 3, V: 4}, Mix(edges, 1, 7)[3])
}

func TestWorkload_Split(t *testing.T) {
	w := &Workload{Ops: make([]Op, 10)}
	for i := range w.Ops {
		w.Ops[i] = Op{U: uint64(i)}
	}

	parts := w.Split(3)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 4)
	assert.Len(t, parts[1], 3)
	assert.Len(t, parts[2], 3)
	assert.Equal(t, uint64(4), parts[1][1].U)

	assert.Len(t, w.Split(0), 1)
}

func TestOpKind_String(t *testing.T) {
	assert.Equal(t, "union", OpUnion.String())
	assert.Equal(t, "same_set", OpSameSet.String())
	assert.Equal(t, "op(9)", OpKind(9).String())
}

func TestEdgeCodec(t *testing.T) {
	edges := []Edge{{0, 1}, {1 << 40, 3}, {^uint64(0), 0}}
	got, err := DecodeEdges(EncodeEdges(edges))
	require.NoError(t, err)
	assert.Equal(t, edges, got)

	_, err = DecodeEdges(make([]byte, 17))
	assert.Error(t, err)
}

func TestCaches(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind string
		path string
	}{
		{CacheBolt, filepath.Join(dir, "bolt", "edges.db")},
		{CacheBadger, filepath.Join(dir, "badger")},
		{CacheBadger, ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.path, func(t *testing.T) {
			c, err := OpenCache(tt.kind, tt.path, &utils.NullLogger{})
			require.NoError(t, err)
			defer c.Close()

			_, ok, err := c.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			edges := []Edge{{1, 2}, {3, 4}}
			require.NoError(t, c.Put("k", edges))
			got, ok, err := c.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, edges, got)
		})
	}
}

func TestBoltCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.db")
	c, err := OpenBoltCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Put("k", []Edge{{5, 6}}))
	require.NoError(t, c.Close())

	c, err = OpenBoltCache(path)
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []Edge{{5, 6}}, got)
}

func TestBoltCache_Compression(t *testing.T) {
	edges := make([]Edge, 1000)
	for i := range edges {
		edges[i] = Edge{U: uint64(i), V: uint64(i + 1)}
	}

	for _, codec := range []compression.Codec{compression.CodecNone, compression.CodecGzip, compression.CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "edges.db")
			comp, err := compression.New(codec, compression.LevelFastest)
			require.NoError(t, err)
			c, err := OpenBoltCache(path, WithCompressor(comp))
			require.NoError(t, err)
			require.NoError(t, c.Put("k", edges))
			require.NoError(t, c.Close())

			// Frames carry their codec, so a differently configured cache reads them.
			c, err = OpenBoltCache(path, WithCompressor(compression.NewGzipCompressor(compression.LevelDefault)))
			require.NoError(t, err)
			defer c.Close()
			got, ok, err := c.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, edges, got)
		})
	}
}

func TestOpenCache_Unknown(t *testing.T) {
	_, err := OpenCache("redis", "", nil)
	assert.Error(t, err)

	c, err := OpenCache(CacheNone, "", nil)
	require.NoError(t, err)
	assert.IsType(t, NopCache{}, c)
}

// countingCache records how often the source reaches the backend.
type countingCache struct {
	NopCache
	store      map[string][]Edge
	gets, puts int
}

func (c *countingCache) Get(key string) ([]Edge, bool, error) {
	c.gets++
	e, ok := c.store[key]
	return e, ok, nil
}

func (c *countingCache) Put(key string, edges []Edge) error {
	c.puts++
	c.store[key] = edges
	return nil
}

func TestSource_UsesCache(t *testing.T) {
	cache := &countingCache{store: map[string][]Edge{}}
	src := NewSource(cache, parallel.DefaultPoolConfig(), &utils.NullLogger{})
	p := Params{Generator: GeneratorRandom, Vertices: 100, Edges: 500, Seed: 3}

	first, err := src.Load(context.Background(), p, 0.5)
	require.NoError(t, err)
	second, err := src.Load(context.Background(), p, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.Ops, second.Ops)
	assert.Len(t, first.Ops, 500)
	assert.Equal(t, p, first.Params)
}

func TestParams_Key(t *testing.T) {
	p := Params{Generator: GeneratorClustered, Vertices: 10, Edges: 20, Nodes: 2, CrossProb: 0.25, Seed: 9}
	assert.Equal(t, "clustered/v10/e20/n2/x0.25/s9", p.Key())
}
