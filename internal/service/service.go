// Package service runs benchmark sessions: it loads the workload, measures
// each variant, writes reports, and hands them to the archive and database.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/internal/report"
	"github.com/numa-dsu/internal/repository"
	"github.com/numa-dsu/internal/storage"
	"github.com/numa-dsu/internal/workload"
	"github.com/numa-dsu/pkg/compression"
	"github.com/numa-dsu/pkg/config"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/parallel"
	"github.com/numa-dsu/pkg/utils"
)

// Service is the benchmark application service.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	clock   utils.Clock
	topo    numa.Context
	archive storage.Archive
	runs    repository.RunRepository
	repos   *repository.Repositories
	live    *LiveSource
}

// Option configures a Service.
type Option func(*Service)

// WithTopology uses ctx instead of building one from the config.
func WithTopology(ctx numa.Context) Option {
	return func(s *Service) { s.topo = ctx }
}

// WithArchive uses a as the report archive.
func WithArchive(a storage.Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithRunRepository uses r to persist runs.
func WithRunRepository(r repository.RunRepository) Option {
	return func(s *Service) { s.runs = r }
}

// WithClock sets the clock used for timing and report timestamps.
func WithClock(c utils.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}
	s := &Service{
		config: cfg,
		logger: logger,
		clock:  utils.NewRealClock(),
		live:   &LiveSource{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize builds the components not supplied as options: the topology,
// the archive when uploads are on, and the database when it is enabled.
func (s *Service) Initialize(ctx context.Context) error {
	if s.topo == nil {
		topo, err := numa.NewTopology(TopologyConfig(s.config, s.logger))
		if err != nil {
			return fmt.Errorf("failed to build topology: %w", err)
		}
		s.topo = topo
	}
	s.logger.Info("Topology: %d nodes, %d threads", s.topo.NodeCount(), s.topo.MaxConcurrency())

	if s.config.Bench.Upload && s.archive == nil {
		a, err := storage.New(&s.config.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		s.archive = a
		s.logger.Info("Storage initialized (%s)", s.config.Storage.Type)
	}

	if s.config.Database.Enabled && s.runs == nil {
		s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)
		repos, err := repository.Open(ctx, &s.config.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		s.repos = repos
		s.runs = repos.Runs
	}
	return nil
}

// Topology returns the execution context. Valid after Initialize.
func (s *Service) Topology() numa.Context {
	return s.topo
}

// Source exposes the live counters of the running variant.
func (s *Service) Source() metrics.Source {
	return s.live
}

// Request describes one benchmark session.
type Request struct {
	// RunID names the session; empty generates a UUID.
	RunID    string
	Variants []dsu.Options
	Bench    bench.Config
	// WriteReports writes the configured report formats to the output directory.
	WriteReports bool
}

// Session is the outcome of Bench.
type Session struct {
	RunID       string
	Results     []*bench.Result
	ReportPaths []string
	ReportURLs  []string
}

// Failed lists the variants whose verification found a mismatch.
func (s *Session) Failed() []string {
	var out []string
	for _, r := range s.Results {
		if r.Verify != nil && !r.Verify.OK() {
			out = append(out, r.Algorithm)
		}
	}
	return out
}

// Bench measures every requested variant on the configured workload.
func (s *Service) Bench(ctx context.Context, req Request) (*Session, error) {
	if s.topo == nil {
		return nil, fmt.Errorf("service is not initialized")
	}
	sess := &Session{RunID: req.RunID}
	if sess.RunID == "" {
		sess.RunID = uuid.NewString()
	}
	logger := s.logger.WithField("run", sess.RunID)

	w, err := s.loadWorkload(ctx)
	if err != nil {
		return nil, err
	}

	for _, opts := range req.Variants {
		res, err := s.benchVariant(ctx, opts, req.Bench, w, logger)
		if err != nil {
			return sess, err
		}
		sess.Results = append(sess.Results, res)
	}

	if req.WriteReports {
		if err := s.writeReports(sess); err != nil {
			return sess, err
		}
	}
	if s.archive != nil && len(sess.ReportPaths) > 0 {
		sess.ReportURLs, err = storage.Publish(ctx, s.archive, sess.RunID, sess.ReportPaths, logger)
		if err != nil {
			return sess, err
		}
	}
	if s.runs != nil {
		if err := s.persist(ctx, sess); err != nil {
			return sess, err
		}
		logger.Info("Saved run with %d variants", len(sess.Results))
	}
	return sess, nil
}

func (s *Service) loadWorkload(ctx context.Context) (*workload.Workload, error) {
	cache, err := s.openCache()
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	src := workload.NewSource(cache, parallel.DefaultPoolConfig(), s.logger)
	return src.Load(ctx, WorkloadParams(s.config, s.topo.NodeCount()), s.config.Workload.UnionRatio)
}

func (s *Service) openCache() (workload.Cache, error) {
	kind, dir := s.config.Workload.Cache, s.config.Workload.CachePath
	var path string
	switch kind {
	case workload.CacheBolt:
		path = filepath.Join(dir, "workload.db")
	case workload.CacheBadger:
		path = filepath.Join(dir, "badger")
	default:
		return workload.OpenCache(kind, "", s.logger)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	codec, err := compression.ParseCodec(s.config.Workload.CacheCompression)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid cache compression", err)
	}
	comp, err := compression.New(codec, compression.LevelFastest)
	if err != nil {
		return nil, err
	}
	return workload.OpenCache(kind, path, s.logger, workload.WithCompressor(comp))
}

func (s *Service) benchVariant(ctx context.Context, opts dsu.Options, bc bench.Config, w *workload.Workload, logger utils.Logger) (*bench.Result, error) {
	if opts.Algorithm == dsu.AlgorithmSequential {
		bc.Threads = 1
	}
	runner, err := bench.NewRunner(s.topo, bc, bench.WithClock(s.clock), bench.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	d, err := dsu.New(s.topo, w.Params.Vertices, opts)
	if err != nil {
		return nil, err
	}
	s.live.Set(d)
	res, err := runner.Run(ctx, d, w)
	s.live.Set(nil)
	if cerr := d.Close(); cerr != nil {
		logger.Warn("Failed to release %s: %v", d.ClassName(), cerr)
	}
	return res, err
}

func (s *Service) writeReports(sess *Session) error {
	if err := s.config.EnsureOutputDir(); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	host, _ := os.Hostname()
	doc := report.Document{
		GeneratedAt: s.clock.Now(),
		Host: report.Host{
			Name:      host,
			Nodes:     s.topo.NodeCount(),
			Threads:   s.topo.MaxConcurrency(),
			Placement: s.config.Topology.Placement,
			Backend:   s.config.Memory.Backend,
		},
		Results: sess.Results,
	}
	paths, err := report.Write(s.config.Bench.OutputDir, "bench-"+sess.RunID, doc, s.config.Bench.Formats)
	sess.ReportPaths = paths
	return err
}

func (s *Service) persist(ctx context.Context, sess *Session) error {
	refs := sess.ReportURLs
	if len(refs) == 0 {
		refs = sess.ReportPaths
	}
	urls, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	host, _ := os.Hostname()
	run := &repository.BenchmarkRun{
		RunID:      sess.RunID,
		Host:       host,
		Nodes:      s.topo.NodeCount(),
		Threads:    s.topo.MaxConcurrency(),
		Placement:  s.config.Topology.Placement,
		Backend:    s.config.Memory.Backend,
		ReportURLs: urls,
	}
	for _, r := range sess.Results {
		v, err := repository.FromResult(sess.RunID, r)
		if err != nil {
			return err
		}
		run.Variants = append(run.Variants, v)
	}
	return s.runs.SaveRun(ctx, run)
}

// HealthCheck pings the database when one is open.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.repos != nil {
		if err := s.repos.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}

// Close releases the database connection opened by Initialize.
func (s *Service) Close() error {
	if s.repos != nil {
		return s.repos.Close()
	}
	return nil
}
