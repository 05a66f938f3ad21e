// Package config provides configuration management for the numa-dsu benchmark.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// EnvPrefix prefixes environment overrides, e.g. NUMADSU_BENCH_REPETITIONS.
const EnvPrefix = "NUMADSU"

// Config holds all configuration for the application.
type Config struct {
	DSU      DSUConfig      `mapstructure:"dsu"`
	Topology TopologyConfig `mapstructure:"topology"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Workload WorkloadConfig `mapstructure:"workload"`
	Bench    BenchConfig    `mapstructure:"bench"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DSUConfig selects the algorithm variant.
type DSUConfig struct {
	Algorithm            string `mapstructure:"algorithm"`   // numa, classic or sequential
	Compression          string `mapstructure:"compression"` // squashing or halving
	CrossNodeCompression bool   `mapstructure:"cross_node_compression"`
	Ownership            string `mapstructure:"ownership"` // eager or lazy
	Wire                 bool   `mapstructure:"wire"`
	Metrics              bool   `mapstructure:"metrics"`
	Compaction           bool   `mapstructure:"compaction"`
	HistMax              int    `mapstructure:"hist_max"`
	WireWarnSpins        int    `mapstructure:"wire_warn_spins"`
}

// TopologyConfig describes the machine the threads run on.
type TopologyConfig struct {
	Nodes     int    `mapstructure:"nodes"`   // 0 detects from sysfs
	Threads   int    `mapstructure:"threads"` // 0 uses every CPU
	Placement string `mapstructure:"placement"`
	Pin       bool   `mapstructure:"pin"`
	SysfsRoot string `mapstructure:"sysfs_root"`
}

// MemoryConfig holds replica allocation settings.
type MemoryConfig struct {
	Backend string `mapstructure:"backend"` // mmap or heap
}

// WorkloadConfig describes the generated edge list and operation mix.
type WorkloadConfig struct {
	Generator     string  `mapstructure:"generator"` // random, grid or clustered
	Vertices      uint64  `mapstructure:"vertices"`
	Edges         uint64  `mapstructure:"edges"`
	UnionRatio    float64 `mapstructure:"union_ratio"`
	CrossNodeProb float64 `mapstructure:"cross_node_prob"`
	Seed          int64   `mapstructure:"seed"`
	Cache         string  `mapstructure:"cache"` // none, bbolt or badger
	CachePath     string  `mapstructure:"cache_path"`
	// CacheCompression is zstd, gzip or none.
	CacheCompression string `mapstructure:"cache_compression"`
}

// BenchConfig holds benchmark runner settings.
type BenchConfig struct {
	Repetitions int      `mapstructure:"repetitions"`
	Warmup      int      `mapstructure:"warmup"`
	Verify      bool     `mapstructure:"verify"`
	OutputDir   string   `mapstructure:"output_dir"`
	Formats     []string `mapstructure:"formats"` // csv, json
	Upload      bool     `mapstructure:"upload"`
}

// StorageConfig holds object storage configuration for report uploads.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// DatabaseConfig holds result database configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // postgres, mysql or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"` // file path for sqlite
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty logs to stderr
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr      string `mapstructure:"addr"` // empty disables the endpoint
	Namespace string `mapstructure:"namespace"`
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/numa-dsu")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			utils.GetGlobalLogger().Debug("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			utils.GetGlobalLogger().Warn("Config file %s not found, using defaults", configPath)
		} else {
			return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config file", err)
		}
	}

	return decode(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "config validation failed", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// DSU defaults
	v.SetDefault("dsu.algorithm", "numa")
	v.SetDefault("dsu.compression", "halving")
	v.SetDefault("dsu.cross_node_compression", false)
	v.SetDefault("dsu.ownership", "eager")
	v.SetDefault("dsu.wire", false)
	v.SetDefault("dsu.metrics", true)
	v.SetDefault("dsu.compaction", true)
	v.SetDefault("dsu.hist_max", 64)
	v.SetDefault("dsu.wire_warn_spins", 1<<24)

	// Topology defaults
	v.SetDefault("topology.nodes", 0)
	v.SetDefault("topology.threads", 0)
	v.SetDefault("topology.placement", "block")
	v.SetDefault("topology.pin", true)

	v.SetDefault("memory.backend", "mmap")

	// Workload defaults
	v.SetDefault("workload.generator", "random")
	v.SetDefault("workload.vertices", 1<<20)
	v.SetDefault("workload.edges", 1<<22)
	v.SetDefault("workload.union_ratio", 0.5)
	v.SetDefault("workload.cross_node_prob", 0.1)
	v.SetDefault("workload.seed", 1)
	v.SetDefault("workload.cache", "none")
	v.SetDefault("workload.cache_path", "./cache")
	v.SetDefault("workload.cache_compression", "zstd")

	// Bench defaults
	v.SetDefault("bench.repetitions", 5)
	v.SetDefault("bench.warmup", 1)
	v.SetDefault("bench.verify", false)
	v.SetDefault("bench.output_dir", "./results")
	v.SetDefault("bench.formats", []string{"csv"})

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "numa_dsu.db")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.namespace", "numadsu")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !oneOf(c.DSU.Algorithm, "numa", "classic", "sequential") {
		return fmt.Errorf("unsupported algorithm: %s", c.DSU.Algorithm)
	}
	if !oneOf(c.DSU.Compression, "squashing", "halving") {
		return fmt.Errorf("unsupported compression: %s", c.DSU.Compression)
	}
	if !oneOf(c.DSU.Ownership, "eager", "lazy") {
		return fmt.Errorf("unsupported ownership: %s", c.DSU.Ownership)
	}
	if c.DSU.HistMax < 1 {
		return fmt.Errorf("hist_max must be at least 1")
	}

	if c.Topology.Nodes < 0 || c.Topology.Threads < 0 {
		return fmt.Errorf("topology nodes and threads must not be negative")
	}
	if !oneOf(c.Topology.Placement, "block", "round_robin") {
		return fmt.Errorf("unsupported placement: %s", c.Topology.Placement)
	}
	if !oneOf(c.Memory.Backend, "mmap", "heap") {
		return fmt.Errorf("unsupported memory backend: %s", c.Memory.Backend)
	}

	if !oneOf(c.Workload.Generator, "random", "grid", "clustered") {
		return fmt.Errorf("unsupported workload generator: %s", c.Workload.Generator)
	}
	if c.Workload.Vertices == 0 {
		return fmt.Errorf("workload needs at least one vertex")
	}
	if c.Workload.UnionRatio < 0 || c.Workload.UnionRatio > 1 {
		return fmt.Errorf("union_ratio must be within [0, 1]")
	}
	if c.Workload.CrossNodeProb < 0 || c.Workload.CrossNodeProb > 1 {
		return fmt.Errorf("cross_node_prob must be within [0, 1]")
	}
	if !oneOf(c.Workload.Cache, "none", "bbolt", "badger") {
		return fmt.Errorf("unsupported workload cache: %s", c.Workload.Cache)
	}
	if !oneOf(c.Workload.CacheCompression, "", "zstd", "gzip", "none") {
		return fmt.Errorf("unsupported cache compression: %s", c.Workload.CacheCompression)
	}

	if c.Bench.Repetitions < 1 {
		return fmt.Errorf("repetitions must be at least 1")
	}
	if c.Bench.Warmup < 0 {
		return fmt.Errorf("warmup must not be negative")
	}
	for _, f := range c.Bench.Formats {
		if !oneOf(f, "csv", "json") {
			return fmt.Errorf("unsupported report format: %s", f)
		}
	}

	// Storage config validation is delegated to storage package

	if c.Database.Enabled {
		if !oneOf(c.Database.Type, "postgres", "mysql", "sqlite") {
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
		if c.Database.Type != "sqlite" && c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	}

	return nil
}

// EnsureOutputDir creates the report directory if it doesn't exist.
func (c *Config) EnsureOutputDir() error {
	if c.Bench.OutputDir == "" {
		return nil
	}
	return os.MkdirAll(c.Bench.OutputDir, 0755)
}

// GetReportPath returns the path of a report file inside the output directory.
func (c *Config) GetReportPath(name string) string {
	return filepath.Join(c.Bench.OutputDir, name)
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
