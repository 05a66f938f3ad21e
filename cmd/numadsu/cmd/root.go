package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/numa-dsu/pkg/config"
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/pprof"
	"github.com/numa-dsu/pkg/utils"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	metricsAddr string

	// Pprof flags
	pprofEnabled  bool
	pprofDir      string
	pprofProfiles string

	logger    utils.Logger
	appConfig *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "numadsu",
	Short: "NUMA-aware concurrent Union-Find benchmark",
	Long: `numadsu benchmarks concurrent Union-Find variants whose parent table is
replicated per NUMA node.

It generates a deterministic workload, runs each variant with pinned worker
threads, verifies the resulting partition against a sequential reference,
and writes CSV/JSON reports that can be archived and stored in a database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg

		level := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			fl, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logger = fl
		} else {
			logger = utils.NewDefaultLogger(level, os.Stderr)
		}
		utils.SetGlobalLogger(logger)

		if metricsAddr == "" {
			metricsAddr = cfg.Metrics.Addr
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and pprof on this address, e.g. :9090")

	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Profile the benchmark process")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for pprof data")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	binName := BinName()
	rootCmd.Example = `  # Benchmark the configured variant
  ` + binName + ` bench -c ./configs/config.yaml

  # Benchmark every variant on a simulated 4-node machine
  ` + binName + ` bench --variants all --nodes 4 --threads 16

  # Check every variant against the sequential reference
  ` + binName + ` verify --variants all

  # Show the detected NUMA layout
  ` + binName + ` topology`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	if logger == nil {
		return utils.GetGlobalLogger()
	}
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// startMetricsServer serves /metrics for source and the pprof handlers on addr.
// The returned function shuts the server down.
func startMetricsServer(addr, namespace string, source metrics.Source, log utils.Logger) func() {
	if addr == "" {
		return func() {}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewPrometheusCollector(namespace, source),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	pprof.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error: %v", err)
		}
	}()
	log.Info("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// startProfiler begins self-profiling when --pprof is set. The returned
// function stops it and logs the files written.
func startProfiler(label string, log utils.Logger) (func(), error) {
	if !pprofEnabled {
		return func() {}, nil
	}
	types, err := pprof.ParseProfileTypes(pprofProfiles)
	if err != nil {
		return nil, err
	}
	p := pprof.NewProfiler(pprofDir, types, log)
	if err := p.Start(label); err != nil {
		return nil, err
	}
	log.Info("pprof collection started (dir: %s)", pprofDir)
	return func() {
		paths, err := p.Stop()
		if err != nil {
			log.Warn("Failed to stop pprof collection: %v", err)
		}
		for _, path := range paths {
			log.Info("pprof data saved to: %s", path)
		}
	}, nil
}
