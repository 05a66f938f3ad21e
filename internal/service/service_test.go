package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/internal/mock"
	"github.com/numa-dsu/internal/repository"
	"github.com/numa-dsu/internal/testutil"
	"github.com/numa-dsu/pkg/config"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/utils"
)

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	return testutil.SmallBenchConfig(t, extra)
}

func quietOptions(t *testing.T, cfg *config.Config) dsu.Options {
	t.Helper()
	opts, err := OptionsFromConfig(cfg.DSU, &utils.NullLogger{})
	require.NoError(t, err)
	return opts
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.DSU.Ownership = "lazy"
	cfg.DSU.Wire = true

	opts := quietOptions(t, cfg)
	assert.Equal(t, dsu.AlgorithmNUMA, opts.Algorithm)
	assert.Equal(t, dsu.OwnershipLazy, opts.Ownership)
	assert.True(t, opts.Wire)
	assert.Equal(t, 64, opts.HistMax)

	cfg.DSU.Compression = "splitting"
	_, err := OptionsFromConfig(cfg.DSU, nil)
	assert.Error(t, err)
}

func TestVariants(t *testing.T) {
	base := dsu.DefaultOptions()
	base.Metrics = false

	one, err := Variants(base, VariantsConfig)
	require.NoError(t, err)
	assert.Equal(t, []dsu.Options{base}, one)

	all, err := Variants(base, VariantsAll)
	require.NoError(t, err)
	require.Len(t, all, 10)

	names := make(map[string]bool)
	for _, o := range all {
		assert.False(t, o.Metrics)
		names[dsu.ClassName(o)] = true
	}
	assert.Len(t, names, 10, "variant names must be distinct")
	assert.True(t, names["DSU_Sequential"])
	assert.True(t, names["DSU_NUMA_Lazy_Halving_Wire"])

	_, err = Variants(base, "some")
	assert.Error(t, err)
}

func TestTopologyAndWorkloadParams(t *testing.T) {
	cfg := testConfig(t, "")

	tc := TopologyConfig(cfg, nil)
	assert.Equal(t, 2, tc.Nodes)
	assert.Equal(t, numa.PlacementBlock, tc.Placement)
	assert.Equal(t, numa.BackendHeap, tc.Backend)
	assert.False(t, tc.Pin)

	p := WorkloadParams(cfg, 4)
	assert.Equal(t, "clustered", p.Generator)
	assert.Equal(t, uint64(256), p.Vertices)
	assert.Equal(t, 4, p.Nodes)
	assert.Equal(t, int64(3), p.Seed)
}

func TestService_BenchAllVariantsWithMocks(t *testing.T) {
	cfg := testConfig(t, "")
	archive := &mock.MockArchive{}
	archive.ExpectPutFile("runs/run-1/bench-run-1.csv", nil)
	archive.ExpectPutFile("runs/run-1/bench-run-1.json", nil)
	runs := &mock.MockRunRepository{}
	runs.On("SaveRun", tmock.Anything, tmock.MatchedBy(func(r *repository.BenchmarkRun) bool {
		return r.RunID == "run-1" && len(r.Variants) == 10 && r.Nodes == 2
	})).Return(nil)

	svc, err := New(cfg, &utils.NullLogger{},
		WithTopology(numa.Simulated(2, 4)), WithArchive(archive), WithRunRepository(runs))
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))

	variants, err := Variants(quietOptions(t, cfg), VariantsAll)
	require.NoError(t, err)

	sess, err := svc.Bench(context.Background(), Request{
		RunID:        "run-1",
		Variants:     variants,
		Bench:        bench.Config{Repetitions: 1, Verify: true},
		WriteReports: true,
	})
	require.NoError(t, err)
	require.Len(t, sess.Results, 10)
	assert.Empty(t, sess.Failed())
	assert.Len(t, sess.ReportPaths, 2)
	assert.Equal(t, []string{"mock://runs/run-1/bench-run-1.csv", "mock://runs/run-1/bench-run-1.json"}, sess.ReportURLs)
	for _, r := range sess.Results {
		if r.Algorithm == "DSU_Sequential" {
			assert.Equal(t, 1, r.Threads)
		} else {
			assert.Equal(t, 4, r.Threads)
		}
	}

	archive.AssertExpectations(t)
	runs.AssertExpectations(t)
	assert.Equal(t, "none", svc.Source().ClassName())
}

func TestService_UploadFailure(t *testing.T) {
	cfg := testConfig(t, "")
	archive := &mock.MockArchive{}
	archive.ExpectPutFile("runs/r/bench-r.csv", errors.New("network down"))

	svc, err := New(cfg, &utils.NullLogger{}, WithTopology(numa.Simulated(1, 2)), WithArchive(archive))
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))

	sess, err := svc.Bench(context.Background(), Request{
		RunID:        "r",
		Variants:     []dsu.Options{quietOptions(t, cfg)},
		Bench:        bench.Config{Repetitions: 1},
		WriteReports: true,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.GetErrorCode(err))
	require.NotNil(t, sess)
	assert.Len(t, sess.Results, 1)
}

func TestService_GeneratesRunID(t *testing.T) {
	cfg := testConfig(t, "")
	svc, err := New(cfg, &utils.NullLogger{}, WithTopology(numa.Simulated(1, 1)))
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))

	sess, err := svc.Bench(context.Background(), Request{
		Variants: []dsu.Options{quietOptions(t, cfg)},
		Bench:    bench.Config{Repetitions: 1},
	})
	require.NoError(t, err)
	assert.Len(t, sess.RunID, 36)
	assert.Empty(t, sess.ReportPaths)
}

func TestService_InitializeBuildsComponents(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, fmt.Sprintf(`
  upload: true
storage:
  type: local
  local_path: %s
database:
  enabled: true
  type: sqlite
  database: %s
`, filepath.Join(dir, "archive"), filepath.Join(dir, "runs.db")))
	cfg.Workload.Cache = "bbolt"
	cfg.Workload.CachePath = filepath.Join(dir, "cache")

	svc, err := New(cfg, &utils.NullLogger{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))
	defer svc.Close()
	require.NoError(t, svc.HealthCheck(ctx))
	assert.Equal(t, 2, svc.Topology().NodeCount())

	sess, err := svc.Bench(ctx, Request{
		RunID:        "e2e",
		Variants:     []dsu.Options{quietOptions(t, cfg)},
		Bench:        bench.Config{Repetitions: 2, Verify: true},
		WriteReports: true,
	})
	require.NoError(t, err)
	require.Len(t, sess.ReportURLs, 2)
	assert.FileExists(t, sess.ReportURLs[0])
	assert.FileExists(t, filepath.Join(dir, "cache", "workload.db"))

	run, err := svc.runs.GetRun(ctx, "e2e")
	require.NoError(t, err)
	require.Len(t, run.Variants, 1)
	assert.Equal(t, 2, run.Variants[0].Repetitions)
	require.NotNil(t, run.Variants[0].Verified)
	assert.True(t, *run.Variants[0].Verified)
}

func TestService_BenchBeforeInitialize(t *testing.T) {
	svc, err := New(testConfig(t, ""), nil)
	require.NoError(t, err)
	_, err = svc.Bench(context.Background(), Request{})
	assert.Error(t, err)

	_, err = New(nil, nil)
	assert.Error(t, err)
}
