package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/numa-dsu/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))
	return configFile
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromReader("yaml", []byte("log:\n  level: info\n"))
	require.NoError(t, err)
	return cfg
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
dsu:
  algorithm: numa
`))
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "halving", cfg.DSU.Compression)
	assert.Equal(t, "eager", cfg.DSU.Ownership)
	assert.True(t, cfg.DSU.Compaction)
	assert.True(t, cfg.DSU.Metrics)
	assert.Equal(t, 64, cfg.DSU.HistMax)
	assert.Equal(t, "block", cfg.Topology.Placement)
	assert.True(t, cfg.Topology.Pin)
	assert.Equal(t, "mmap", cfg.Memory.Backend)
	assert.Equal(t, "random", cfg.Workload.Generator)
	assert.Equal(t, uint64(1<<20), cfg.Workload.Vertices)
	assert.Equal(t, 0.5, cfg.Workload.UnionRatio)
	assert.Equal(t, "none", cfg.Workload.Cache)
	assert.Equal(t, "zstd", cfg.Workload.CacheCompression)
	assert.Equal(t, 5, cfg.Bench.Repetitions)
	assert.Equal(t, []string{"csv"}, cfg.Bench.Formats)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "numadsu", cfg.Metrics.Namespace)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
dsu:
  algorithm: numa
  compression: squashing
  ownership: lazy
  wire: true
  cross_node_compression: true
topology:
  nodes: 4
  threads: 32
  placement: round_robin
  pin: false
memory:
  backend: heap
workload:
  generator: clustered
  vertices: 1000
  edges: 5000
  union_ratio: 0.8
  seed: 7
  cache: bbolt
  cache_path: /tmp/cache.db
bench:
  repetitions: 3
  formats: [csv, json]
database:
  enabled: true
  type: postgres
  host: db.example.com
  port: 5432
  database: numa_dsu
  user: admin
  password: secret
metrics:
  addr: ":9090"
`))
	require.NoError(t, err)

	assert.Equal(t, "squashing", cfg.DSU.Compression)
	assert.Equal(t, "lazy", cfg.DSU.Ownership)
	assert.True(t, cfg.DSU.Wire)
	assert.True(t, cfg.DSU.CrossNodeCompression)
	assert.Equal(t, 4, cfg.Topology.Nodes)
	assert.Equal(t, 32, cfg.Topology.Threads)
	assert.Equal(t, "round_robin", cfg.Topology.Placement)
	assert.False(t, cfg.Topology.Pin)
	assert.Equal(t, "heap", cfg.Memory.Backend)
	assert.Equal(t, "clustered", cfg.Workload.Generator)
	assert.Equal(t, uint64(1000), cfg.Workload.Vertices)
	assert.Equal(t, int64(7), cfg.Workload.Seed)
	assert.Equal(t, "bbolt", cfg.Workload.Cache)
	assert.Equal(t, 3, cfg.Bench.Repetitions)
	assert.Equal(t, []string{"csv", "json"}, cfg.Bench.Formats)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "numa_dsu", cfg.Database.Database)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NUMADSU_BENCH_REPETITIONS", "9")
	t.Setenv("NUMADSU_DSU_OWNERSHIP", "lazy")

	cfg, err := Load(writeConfig(t, `
bench:
  repetitions: 2
`))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Bench.Repetitions)
	assert.Equal(t, "lazy", cfg.DSU.Ownership)
}

func TestLoad_InvalidAlgorithm(t *testing.T) {
	_, err := Load(writeConfig(t, `
dsu:
  algorithm: quick_find
`))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "unsupported algorithm")
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "dsu: [unclosed"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"compression", func(c *Config) { c.DSU.Compression = "splitting" }, "unsupported compression"},
		{"ownership", func(c *Config) { c.DSU.Ownership = "shared" }, "unsupported ownership"},
		{"hist max", func(c *Config) { c.DSU.HistMax = 0 }, "hist_max"},
		{"negative nodes", func(c *Config) { c.Topology.Nodes = -1 }, "must not be negative"},
		{"placement", func(c *Config) { c.Topology.Placement = "scatter" }, "unsupported placement"},
		{"backend", func(c *Config) { c.Memory.Backend = "hugetlbfs" }, "unsupported memory backend"},
		{"generator", func(c *Config) { c.Workload.Generator = "powerlaw" }, "unsupported workload generator"},
		{"no vertices", func(c *Config) { c.Workload.Vertices = 0 }, "at least one vertex"},
		{"union ratio", func(c *Config) { c.Workload.UnionRatio = 1.5 }, "union_ratio"},
		{"cross node prob", func(c *Config) { c.Workload.CrossNodeProb = -0.1 }, "cross_node_prob"},
		{"cache", func(c *Config) { c.Workload.Cache = "redis" }, "unsupported workload cache"},
		{"cache compression", func(c *Config) { c.Workload.CacheCompression = "lz4" }, "unsupported cache compression"},
		{"repetitions", func(c *Config) { c.Bench.Repetitions = 0 }, "repetitions must be at least 1"},
		{"warmup", func(c *Config) { c.Bench.Warmup = -1 }, "warmup"},
		{"format", func(c *Config) { c.Bench.Formats = []string{"xml"} }, "unsupported report format"},
		{"database type", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Type = "oracle"
		}, "unsupported database type"},
		{"database host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Type = "postgres"
			c.Database.Host = ""
		}, "database host is required"},
		{"sqlite without host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Type = "sqlite"
			c.Database.Host = ""
		}, ""},
		{"disabled database is not checked", func(c *Config) { c.Database.Type = "oracle" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetReportPath(t *testing.T) {
	cfg := &Config{Bench: BenchConfig{OutputDir: "/tmp/results"}}
	assert.Equal(t, "/tmp/results/bench.csv", cfg.GetReportPath("bench.csv"))
}

func TestEnsureOutputDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "results", "run")
	cfg := &Config{Bench: BenchConfig{OutputDir: outDir}}

	require.NoError(t, cfg.EnsureOutputDir())
	_, err := os.Stat(outDir)
	assert.NoError(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	// Should not return error, use defaults
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "numa", cfg.DSU.Algorithm)
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte(`
dsu:
  algorithm: classic
database:
  enabled: true
  type: mysql
  host: mysql.local
`))
	require.NoError(t, err)
	assert.Equal(t, "classic", cfg.DSU.Algorithm)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "mysql.local", cfg.Database.Host)
}
