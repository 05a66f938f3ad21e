package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func boolPtr(b bool) *bool { return &b }

func sampleRun(runID string) *BenchmarkRun {
	return &BenchmarkRun{
		RunID:      runID,
		Host:       "bench-host",
		Nodes:      2,
		Threads:    8,
		Placement:  "block",
		Backend:    "mmap",
		ReportURLs: JSONField(`["runs/` + runID + `/bench.csv"]`),
		Variants: []VariantResult{
			{Algorithm: "DSU_NUMA_Eager_Halving", Generator: "random", Vertices: 1000, Edges: 4000, Threads: 8, Repetitions: 3, MeanOpsMs: 120.5, Verified: boolPtr(true)},
			{Algorithm: "DSU_Classic_Halving", Generator: "random", Vertices: 1000, Edges: 4000, Threads: 8, Repetitions: 3, MeanOpsMs: 80},
		},
	}
}
