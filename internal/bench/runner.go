// Package bench runs DSU variants over generated workloads and measures them.
package bench

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/internal/statistics"
	"github.com/numa-dsu/internal/workload"
	"github.com/numa-dsu/pkg/collections"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/parallel"
	"github.com/numa-dsu/pkg/telemetry"
	"github.com/numa-dsu/pkg/utils"
)

// progressBatch is how many operations a thread completes between progress updates.
const progressBatch = 1 << 14

// Config controls a benchmark.
type Config struct {
	Repetitions int
	// Warmup runs are executed first and not measured.
	Warmup int
	// Threads is the number of worker threads; 0 uses the context's maximum.
	Threads int
	// Verify checks the final partition against the reference Union-Find.
	Verify bool
	// ProgressInterval logs progress this often; 0 disables it.
	ProgressInterval time.Duration
}

// RunResult is one measured repetition.
type RunResult struct {
	Repetition int                       `json:"repetition"`
	Duration   time.Duration             `json:"duration_ns"`
	Ops        int                       `json:"ops"`
	OpsPerMs   float64                   `json:"ops_per_ms"`
	Metrics    metrics.Snapshot          `json:"metrics,omitempty"`
	Threads    []statistics.ThreadSample `json:"-"`
}

// Verification reports the comparison with the reference partition.
type Verification struct {
	Checked    uint64 `json:"checked"`
	Mismatches uint64 `json:"mismatches"`
	// FirstMismatch is the smallest vertex whose representative differs.
	FirstMismatch uint64 `json:"first_mismatch,omitempty"`
	Components    uint64 `json:"components"`
	// Roots is the number of distinct representatives the variant reported.
	Roots uint64 `json:"roots"`
}

// OK reports whether every vertex matched.
func (v *Verification) OK() bool {
	return v != nil && v.Mismatches == 0
}

// Result aggregates every measured repetition of one variant.
type Result struct {
	Algorithm  string                        `json:"algorithm"`
	Workload   workload.Params               `json:"workload"`
	UnionRatio float64                       `json:"union_ratio"`
	Threads    int                           `json:"threads"`
	Nodes      int                           `json:"nodes"`
	Runs       []RunResult                   `json:"runs"`
	Throughput statistics.Summary            `json:"throughput_ops_per_ms"`
	Metrics    metrics.Snapshot              `json:"metrics"`
	Hist       metrics.HistSnapshot          `json:"histograms,omitempty"`
	TopEvents  []statistics.EventEntry       `json:"top_events,omitempty"`
	Balance    *statistics.ThreadStatsResult `json:"-"`
	Imbalance  float64                       `json:"imbalance"`
	Verify     *Verification                 `json:"verification,omitempty"`
}

// Runner executes benchmarks on one execution context.
type Runner struct {
	ctx    numa.Context
	cfg    Config
	clock  utils.Clock
	logger utils.Logger
	tracer trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for run durations.
func WithClock(clock utils.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger utils.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTracer overrides the tracer; the default comes from pkg/telemetry.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// NewRunner validates cfg and creates a Runner.
func NewRunner(ctx numa.Context, cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Repetitions < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "repetitions must be at least 1")
	}
	if cfg.Warmup < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "warmup must not be negative")
	}
	if cfg.Threads <= 0 {
		cfg.Threads = ctx.MaxConcurrency()
	}
	if cfg.Threads > ctx.MaxConcurrency() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput,
			"%d threads exceed the context maximum of %d", cfg.Threads, ctx.MaxConcurrency())
	}

	r := &Runner{
		ctx:    ctx,
		cfg:    cfg,
		clock:  utils.NewRealClock(),
		logger: utils.GetGlobalLogger(),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithField("component", "bench")
	return r, nil
}

// Threads returns the number of worker threads per run.
func (r *Runner) Threads() int {
	return r.cfg.Threads
}

// Run benchmarks d over w. d is re-initialized before every repetition and
// left holding the final partition of the last one.
func (r *Runner) Run(ctx context.Context, d dsu.DSU, w *workload.Workload) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "bench.variant", trace.WithAttributes(
		telemetry.AttrAlgorithm.String(d.ClassName()),
		telemetry.AttrWorkload.String(w.Params.Generator),
		telemetry.AttrVertices.Int64(int64(w.Params.Vertices)),
		telemetry.AttrThreads.Int(r.cfg.Threads),
	))
	defer span.End()

	res, err := r.run(ctx, d, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, d dsu.DSU, w *workload.Workload) (*Result, error) {
	logger := r.logger.WithField("algorithm", d.ClassName())
	parts := w.Split(r.cfg.Threads)
	timer := utils.NewTimer(d.ClassName(), utils.WithClock(r.clock), utils.WithLogger(logger))

	res := &Result{
		Algorithm:  d.ClassName(),
		Workload:   w.Params,
		UnionRatio: w.UnionRatio,
		Threads:    r.cfg.Threads,
		Nodes:      r.ctx.NodeCount(),
		Metrics:    metrics.Snapshot{},
	}

	total := r.cfg.Warmup + r.cfg.Repetitions
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		phase := "run"
		if i < r.cfg.Warmup {
			phase = "warmup"
		}
		run, err := r.runOnce(ctx, d, parts, timer, phase, i-r.cfg.Warmup)
		if err != nil {
			return nil, err
		}
		if i < r.cfg.Warmup {
			continue
		}
		res.Runs = append(res.Runs, *run)
		res.Metrics.Add(run.Metrics)
		logger.Debug("Repetition %d: %d ops in %v (%.1f ops/ms)", run.Repetition, run.Ops, run.Duration, run.OpsPerMs)
	}
	timer.PrintSummary()

	throughput := make([]float64, len(res.Runs))
	var samples []statistics.ThreadSample
	for i, run := range res.Runs {
		throughput[i] = run.OpsPerMs
		samples = append(samples, run.Threads...)
	}
	res.Throughput = statistics.Summarize(throughput)
	res.Hist = d.CollectHistMetrics()
	res.TopEvents = statistics.NewTopEventsCalculator().Calculate(res.Metrics)
	res.Balance = statistics.NewThreadStatsCalculator().Calculate(samples)
	res.Imbalance = res.Balance.Imbalance

	if r.cfg.Verify {
		res.Verify = r.verify(ctx, d, w)
		if !res.Verify.OK() {
			logger.Error("Verification failed: %d of %d vertices differ, first at %d",
				res.Verify.Mismatches, res.Verify.Checked, res.Verify.FirstMismatch)
		}
	}

	logger.Info("Throughput %.1f ± %.1f ops/ms over %d runs", res.Throughput.Mean, res.Throughput.StdDev, len(res.Runs))
	return res, nil
}

// runOnce executes every thread's share of operations once.
func (r *Runner) runOnce(ctx context.Context, d dsu.DSU, parts [][]workload.Op, timer *utils.Timer, phase string, rep int) (*RunResult, error) {
	d.ReInit()
	d.ResetMetrics()

	_, span := r.tracer.Start(ctx, "bench."+phase, trace.WithAttributes(telemetry.AttrRepetition.Int(rep)))
	defer span.End()

	var ops int
	for _, p := range parts {
		ops += len(p)
	}

	var progress *parallel.ProgressTracker
	if r.cfg.ProgressInterval > 0 {
		progress = parallel.NewProgressTracker(int64(ops), func(done, total int64) {
			r.logger.Info("%s progress: %d/%d ops", phase, done, total)
		}, r.cfg.ProgressInterval)
		progress.Start(ctx)
		defer progress.Stop()
	}

	samples := make([]statistics.ThreadSample, len(parts))
	pt := timer.Start(phase)
	err := numa.Run(r.ctx, func(th numa.Thread) {
		mine := parts[th.ID]
		for i, op := range mine {
			switch op.Kind {
			case workload.OpUnion:
				d.Union(th, op.U, op.V)
			default:
				d.SameSet(th, op.U, op.V)
			}
			if progress != nil && (i+1)%progressBatch == 0 {
				progress.Add(progressBatch)
			}
		}
		d.GoAway(th)
		samples[th.ID] = statistics.ThreadSample{TID: th.ID, Node: th.Node, Ops: int64(len(mine))}
	}, len(parts))
	elapsed := pt.Stop()
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(apperrors.CodeUnknown, fmt.Sprintf("%s repetition %d failed", phase, rep), err)
	}

	run := &RunResult{
		Repetition: rep,
		Duration:   elapsed,
		Ops:        ops,
		Metrics:    d.CollectMetrics(),
		Threads:    samples,
	}
	if ms := float64(elapsed) / float64(time.Millisecond); ms > 0 {
		run.OpsPerMs = float64(ops) / ms
	}
	span.SetAttributes(telemetry.AttrOps.Int(ops))
	return run, nil
}

// verify replays every union on the reference structure and compares the
// representative of each vertex. Both sides pick the smallest member, so
// representatives must match exactly.
func (r *Runner) verify(ctx context.Context, d dsu.DSU, w *workload.Workload) *Verification {
	_, span := r.tracer.Start(ctx, "bench.verify")
	defer span.End()

	ref := dsu.NewReference(w.Params.Vertices)
	for _, op := range w.Ops {
		if op.Kind == workload.OpUnion {
			ref.Union(op.U, op.V)
		}
	}

	th := r.ctx.Thread(0)
	v := &Verification{Checked: ref.Len(), Components: ref.Components()}
	roots := collections.NewBitset(ref.Len())
	for u := uint64(0); u < ref.Len(); u++ {
		rep := d.Find(th, u)
		roots.Set(rep)
		if rep != ref.Find(u) {
			if v.Mismatches == 0 {
				v.FirstMismatch = u
			}
			v.Mismatches++
		}
	}
	v.Roots = roots.Count()
	if v.Mismatches > 0 {
		span.SetStatus(codes.Error, "partition mismatch")
	}
	return v
}
