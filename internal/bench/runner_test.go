package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/internal/workload"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/parallel"
	"github.com/numa-dsu/pkg/utils"
)

func testWorkload(t *testing.T, gen string) *workload.Workload {
	t.Helper()
	p := workload.Params{Generator: gen, Vertices: 500, Edges: 2000, Nodes: 2, CrossProb: 0.3, Seed: 11}
	src := workload.NewSource(nil, parallel.DefaultPoolConfig(), &utils.NullLogger{})
	w, err := src.Load(context.Background(), p, 0.7)
	require.NoError(t, err)
	return w
}

func newDSU(t *testing.T, ctx numa.Context, size uint64, mutate func(*dsu.Options)) dsu.DSU {
	t.Helper()
	opts := dsu.DefaultOptions()
	opts.Logger = &utils.NullLogger{}
	mutate(&opts)
	d, err := dsu.New(ctx, size, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRunner_VerifiesEveryVariant(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dsu.Options)
	}{
		{"numa eager", func(*dsu.Options) {}},
		{"numa lazy wire", func(o *dsu.Options) {
			o.Ownership = dsu.OwnershipLazy
			o.Wire = true
		}},
		{"numa squashing cross node", func(o *dsu.Options) {
			o.Compression = dsu.CompressionSquashing
			o.CrossNodeCompression = true
		}},
		{"classic", func(o *dsu.Options) { o.Algorithm = dsu.AlgorithmClassic }},
	}

	w := testWorkload(t, workload.GeneratorClustered)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := numa.Simulated(2, 4)
			d := newDSU(t, ctx, w.Params.Vertices, tt.mutate)
			r, err := NewRunner(ctx, Config{Repetitions: 2, Warmup: 1, Verify: true}, WithLogger(&utils.NullLogger{}))
			require.NoError(t, err)

			res, err := r.Run(context.Background(), d, w)
			require.NoError(t, err)
			require.NotNil(t, res.Verify)
			assert.True(t, res.Verify.OK(), "first mismatch at %d", res.Verify.FirstMismatch)
			assert.Equal(t, w.Params.Vertices, res.Verify.Checked)
			assert.Equal(t, res.Verify.Components, res.Verify.Roots)
			assert.Len(t, res.Runs, 2)
			assert.Equal(t, 4, res.Threads)
			assert.Equal(t, 2, res.Nodes)
			assert.Equal(t, d.ClassName(), res.Algorithm)
			assert.Equal(t, int64(len(w.Ops)*2), res.Balance.TotalOps)
		})
	}
}

func TestRunner_SequentialSingleThread(t *testing.T) {
	w := testWorkload(t, workload.GeneratorRandom)
	ctx := numa.Simulated(1, 1)
	d := newDSU(t, ctx, w.Params.Vertices, func(o *dsu.Options) { o.Algorithm = dsu.AlgorithmSequential })

	r, err := NewRunner(ctx, Config{Repetitions: 1, Verify: true}, WithLogger(&utils.NullLogger{}))
	require.NoError(t, err)
	res, err := r.Run(context.Background(), d, w)
	require.NoError(t, err)
	assert.True(t, res.Verify.OK())
	assert.Equal(t, 1, res.Threads)
}

func TestRunner_ThroughputFromClock(t *testing.T) {
	w := testWorkload(t, workload.GeneratorGrid)
	ctx := numa.Simulated(2, 2)
	d := newDSU(t, ctx, w.Params.Vertices, func(*dsu.Options) {})

	// Every phase start advances the clock by 2ms, so each run lasts 2ms.
	clock := utils.NewSteppingMockClock(time.Unix(0, 0), 2*time.Millisecond)
	r, err := NewRunner(ctx, Config{Repetitions: 3}, WithClock(clock), WithLogger(&utils.NullLogger{}))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), d, w)
	require.NoError(t, err)
	require.Len(t, res.Runs, 3)
	for i, run := range res.Runs {
		assert.Equal(t, i, run.Repetition)
		assert.Equal(t, 2*time.Millisecond, run.Duration)
		assert.Equal(t, len(w.Ops), run.Ops)
	}
	assert.InDelta(t, float64(len(w.Ops))/2, res.Throughput.Mean, 1e-9)
	assert.Zero(t, res.Throughput.StdDev)
	assert.Nil(t, res.Verify)
	assert.Positive(t, res.Metrics["local_reads"])
	assert.NotEmpty(t, res.TopEvents)
}

func TestRunner_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	w := testWorkload(t, workload.GeneratorRandom)
	ctx := numa.Simulated(2, 2)
	d := newDSU(t, ctx, w.Params.Vertices, func(*dsu.Options) {})
	r, err := NewRunner(ctx, Config{Repetitions: 2, Warmup: 1, Verify: true},
		WithLogger(&utils.NullLogger{}), WithTracer(tp.Tracer("test")))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), d, w)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	assert.Equal(t, map[string]int{
		"bench.variant": 1,
		"bench.warmup":  1,
		"bench.run":     2,
		"bench.verify":  1,
	}, counts)
}

// brokenDSU reports every vertex as its own representative.
type brokenDSU struct {
	dsu.DSU
}

func (brokenDSU) Find(_ numa.Thread, u uint64) uint64 { return u }

func TestRunner_DetectsWrongPartition(t *testing.T) {
	w := testWorkload(t, workload.GeneratorRandom)
	ctx := numa.Simulated(1, 2)
	d := newDSU(t, ctx, w.Params.Vertices, func(*dsu.Options) {})

	r, err := NewRunner(ctx, Config{Repetitions: 1, Verify: true}, WithLogger(&utils.NullLogger{}))
	require.NoError(t, err)
	res, err := r.Run(context.Background(), brokenDSU{d}, w)
	require.NoError(t, err)

	assert.False(t, res.Verify.OK())
	assert.Positive(t, res.Verify.Mismatches)
	assert.Less(t, res.Verify.Components, w.Params.Vertices)
	assert.Equal(t, w.Params.Vertices, res.Verify.Roots)
}

func TestRunner_Cancelled(t *testing.T) {
	w := testWorkload(t, workload.GeneratorRandom)
	ctx := numa.Simulated(1, 1)
	d := newDSU(t, ctx, w.Params.Vertices, func(*dsu.Options) {})
	r, err := NewRunner(ctx, Config{Repetitions: 1}, WithLogger(&utils.NullLogger{}))
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(cctx, d, w)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_Invalid(t *testing.T) {
	ctx := numa.Simulated(1, 2)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no repetitions", Config{}},
		{"negative warmup", Config{Repetitions: 1, Warmup: -1}},
		{"too many threads", Config{Repetitions: 1, Threads: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(ctx, tt.cfg)
			assert.Error(t, err)
		})
	}

	r, err := NewRunner(ctx, Config{Repetitions: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Threads())
}
