package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/numa-dsu/internal/repository"
)

// MockRunRepository is a mock implementation of repository.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

// SaveRun mocks the SaveRun method.
func (m *MockRunRepository) SaveRun(ctx context.Context, run *repository.BenchmarkRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// GetRun mocks the GetRun method.
func (m *MockRunRepository) GetRun(ctx context.Context, runID string) (*repository.BenchmarkRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.BenchmarkRun), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRunRepository) ListRuns(ctx context.Context, limit int) ([]*repository.BenchmarkRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.BenchmarkRun), args.Error(1)
}

// History mocks the History method.
func (m *MockRunRepository) History(ctx context.Context, algorithm string, limit int) ([]repository.VariantResult, error) {
	args := m.Called(ctx, algorithm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.VariantResult), args.Error(1)
}
