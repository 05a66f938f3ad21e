package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/service"
	"github.com/numa-dsu/internal/statistics"
	"github.com/numa-dsu/pkg/config"
	"github.com/numa-dsu/pkg/telemetry"
)

var (
	// Shared by bench and verify
	nodesFlag    int
	threadsFlag  int
	verticesFlag uint64
	edgesFlag    uint64

	// Bench command flags
	benchVariants    string
	benchRunID       string
	benchRepetitions int
	benchVerify      bool
	benchOutput      string
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark Union-Find variants",
	Long: `Benchmark one or all Union-Find variants on the configured workload.

Each variant is re-initialized and run for the configured number of warmup and
measured repetitions. Throughput (operations per millisecond), engine counters
and thread balance are written to the output directory as CSV and/or JSON.
When bench.upload is set the reports are archived, and when the database is
enabled the run is stored there.`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addWorkloadFlags(benchCmd)

	benchCmd.Flags().StringVar(&benchVariants, "variants", service.VariantsConfig, "Variant set: config (the dsu section) or all")
	benchCmd.Flags().StringVar(&benchRunID, "run-id", "", "Run id (auto-generated if empty)")
	benchCmd.Flags().IntVarP(&benchRepetitions, "repetitions", "r", 0, "Measured repetitions per variant")
	benchCmd.Flags().BoolVar(&benchVerify, "verify", false, "Check each variant against the sequential reference")
	benchCmd.Flags().StringVarP(&benchOutput, "output", "o", "", "Output directory for reports")
}

func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&nodesFlag, "nodes", 0, "Simulate this many NUMA nodes (0 detects)")
	cmd.Flags().IntVarP(&threadsFlag, "threads", "t", 0, "Worker threads (0 uses every CPU)")
	cmd.Flags().Uint64Var(&verticesFlag, "vertices", 0, "Number of vertices")
	cmd.Flags().Uint64Var(&edgesFlag, "edges", 0, "Number of generated edges")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("nodes") {
		cfg.Topology.Nodes = nodesFlag
	}
	if flags.Changed("threads") {
		cfg.Topology.Threads = threadsFlag
	}
	if flags.Changed("vertices") {
		cfg.Workload.Vertices = verticesFlag
	}
	if flags.Changed("edges") {
		cfg.Workload.Edges = edgesFlag
	}
	if flags.Changed("repetitions") {
		cfg.Bench.Repetitions = benchRepetitions
	}
	if flags.Changed("verify") {
		cfg.Bench.Verify = benchVerify
	}
	if flags.Changed("output") {
		cfg.Bench.OutputDir = benchOutput
	}
	return cfg.Validate()
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	bc := bench.Config{
		Repetitions: cfg.Bench.Repetitions,
		Warmup:      cfg.Bench.Warmup,
		Verify:      cfg.Bench.Verify,
	}
	sess, err := runSession(cmd, cfg, benchVariants, benchRunID, bc, true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printResults(out, sess)
	for _, p := range sess.ReportPaths {
		fmt.Fprintf(out, "Report: %s\n", p)
	}
	for _, u := range sess.ReportURLs {
		fmt.Fprintf(out, "Uploaded: %s\n", u)
	}
	if failed := sess.Failed(); len(failed) > 0 {
		return fmt.Errorf("verification failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// runSession wires the service, tracing, metrics endpoint and profiler
// around one benchmark session.
func runSession(cmd *cobra.Command, cfg *config.Config, variantSet, runID string, bc bench.Config, writeReports bool) (*service.Session, error) {
	log := GetLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := svc.Initialize(ctx); err != nil {
		return nil, err
	}
	defer svc.Close()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.HostAttributes(svc.Topology().NodeCount(), runtime.NumCPU())...)
	if err != nil {
		log.Warn("Failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("Failed to flush traces: %v", err)
		}
	}()

	stopMetrics := startMetricsServer(metricsAddr, cfg.Metrics.Namespace, svc.Source(), log)
	defer stopMetrics()

	base, err := service.OptionsFromConfig(cfg.DSU, log)
	if err != nil {
		return nil, err
	}
	variants, err := service.Variants(base, variantSet)
	if err != nil {
		return nil, err
	}

	if runID == "" {
		runID = uuid.NewString()
	}
	if verbose {
		bc.ProgressInterval = time.Second
	}

	stopProfiler, err := startProfiler("bench-"+runID, log)
	if err != nil {
		return nil, err
	}
	sess, err := svc.Bench(ctx, service.Request{
		RunID:        runID,
		Variants:     variants,
		Bench:        bc,
		WriteReports: writeReports,
	})
	stopProfiler()
	return sess, err
}

func printResults(w io.Writer, sess *service.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ALGORITHM\tTHREADS\tOPS/MS\tSTDDEV\tREMOTE\tIMBALANCE\tVERIFIED\n")
	for _, r := range sess.Results {
		verified := "-"
		if r.Verify != nil {
			verified = "ok"
			if !r.Verify.OK() {
				verified = fmt.Sprintf("%d mismatches", r.Verify.Mismatches)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f%%\t%.2f\t%s\n",
			r.Algorithm, r.Threads, r.Throughput.Mean, r.Throughput.StdDev,
			100*statistics.RemoteRatio(r.Metrics), r.Imbalance, verified)
	}
	tw.Flush()
}
