package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/numa-dsu/pkg/errors"
)

// SQLRunRepository implements RunRepository on database/sql for deployments
// that manage the schema themselves.
type SQLRunRepository struct {
	db      *sql.DB
	dialect DBType
	now     func() time.Time
}

// NewSQLRunRepository creates a repository for a postgres or mysql connection.
func NewSQLRunRepository(db *sql.DB, dialect DBType) *SQLRunRepository {
	return &SQLRunRepository{db: db, dialect: dialect, now: time.Now}
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLRunRepository) rebind(query string) string {
	if r.dialect != DBTypePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// SaveRun inserts run and its variants in one transaction.
func (r *SQLRunRepository) SaveRun(ctx context.Context, run *BenchmarkRun) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now()
	}
	_, err = tx.ExecContext(ctx, r.rebind(`
		INSERT INTO benchmark_runs (run_id, host, nodes, threads, placement, backend, report_urls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		run.RunID, run.Host, run.Nodes, run.Threads, run.Placement, run.Backend, run.ReportURLs, run.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to insert run", err)
	}

	insertVariant := r.rebind(`
		INSERT INTO variant_results (run_id, algorithm, generator, vertices, edges, union_ratio, threads,
			repetitions, mean_ops_per_ms, stddev_ops_per_ms, remote_ratio, imbalance, verified, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i := range run.Variants {
		v := &run.Variants[i]
		v.RunID = run.RunID
		v.CreatedAt = run.CreatedAt
		_, err = tx.ExecContext(ctx, insertVariant,
			v.RunID, v.Algorithm, v.Generator, v.Vertices, v.Edges, v.UnionRatio, v.Threads,
			v.Repetitions, v.MeanOpsMs, v.StdDevOpsMs, v.RemoteRatio, v.Imbalance, v.Verified, v.Metrics, v.CreatedAt,
		)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to insert variant "+v.Algorithm, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to commit run", err)
	}
	return nil
}

const runColumns = `id, run_id, COALESCE(host, ''), nodes, threads, COALESCE(placement, ''),
	COALESCE(backend, ''), report_urls, created_at`

func scanRun(row interface{ Scan(...any) error }) (*BenchmarkRun, error) {
	run := &BenchmarkRun{}
	err := row.Scan(&run.ID, &run.RunID, &run.Host, &run.Nodes, &run.Threads,
		&run.Placement, &run.Backend, &run.ReportURLs, &run.CreatedAt)
	return run, err
}

// GetRun loads a run with its variants.
func (r *SQLRunRepository) GetRun(ctx context.Context, runID string) (*BenchmarkRun, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+runColumns+` FROM benchmark_runs WHERE run_id = ?`), runID)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Variants, err = r.queryVariants(ctx, `WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the newest runs without variants.
func (r *SQLRunRepository) ListRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT `+runColumns+` FROM benchmark_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*BenchmarkRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// History returns the newest results of algorithm.
func (r *SQLRunRepository) History(ctx context.Context, algorithm string, limit int) ([]VariantResult, error) {
	return r.queryVariants(ctx, `WHERE algorithm = ? ORDER BY id DESC LIMIT ?`, algorithm, limit)
}

func (r *SQLRunRepository) queryVariants(ctx context.Context, where string, args ...any) ([]VariantResult, error) {
	query := r.rebind(`
		SELECT id, run_id, algorithm, COALESCE(generator, ''), vertices, edges, union_ratio, threads,
			repetitions, mean_ops_per_ms, stddev_ops_per_ms, remote_ratio, imbalance, verified, metrics, created_at
		FROM variant_results ` + where)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var out []VariantResult
	for rows.Next() {
		var v VariantResult
		var verified sql.NullBool
		if err := rows.Scan(&v.ID, &v.RunID, &v.Algorithm, &v.Generator, &v.Vertices, &v.Edges,
			&v.UnionRatio, &v.Threads, &v.Repetitions, &v.MeanOpsMs, &v.StdDevOpsMs,
			&v.RemoteRatio, &v.Imbalance, &verified, &v.Metrics, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if verified.Valid {
			v.Verified = &verified.Bool
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
