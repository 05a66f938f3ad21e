// Package repository persists benchmark runs in a relational database.
package repository

import (
	"context"
)

// RunRepository stores benchmark runs and their per-variant results.
type RunRepository interface {
	// SaveRun inserts run and its variants in one transaction.
	SaveRun(ctx context.Context, run *BenchmarkRun) error

	// GetRun loads a run with its variants.
	GetRun(ctx context.Context, runID string) (*BenchmarkRun, error)

	// ListRuns returns the most recent runs without variants, newest first.
	ListRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error)

	// History returns the results of one algorithm across runs, newest first.
	History(ctx context.Context, algorithm string, limit int) ([]VariantResult, error)
}
