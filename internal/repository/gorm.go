package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "github.com/numa-dsu/pkg/errors"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Migrate creates or updates the result tables.
func (r *GormRunRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&BenchmarkRun{}, &VariantResult{})
}

// SaveRun inserts the run and its variants.
func (r *GormRunRepository) SaveRun(ctx context.Context, run *BenchmarkRun) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save run", err)
	}
	return nil
}

// GetRun loads a run by its run id.
func (r *GormRunRepository) GetRun(ctx context.Context, runID string) (*BenchmarkRun, error) {
	var run BenchmarkRun
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("run_id = ?", runID).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the newest runs.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error) {
	var runs []*BenchmarkRun
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// History returns the newest results of algorithm.
func (r *GormRunRepository) History(ctx context.Context, algorithm string, limit int) ([]VariantResult, error) {
	var rows []VariantResult
	err := r.db.WithContext(ctx).
		Where("algorithm = ?", algorithm).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return rows, nil
}
