package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/statistics"
)

// BenchmarkRun is one invocation of the benchmark on one host.
type BenchmarkRun struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string          `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	Host       string          `gorm:"column:host;type:varchar(255)"`
	Nodes      int             `gorm:"column:nodes"`
	Threads    int             `gorm:"column:threads"`
	Placement  string          `gorm:"column:placement;type:varchar(32)"`
	Backend    string          `gorm:"column:backend;type:varchar(32)"`
	ReportURLs JSONField       `gorm:"column:report_urls;type:json"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	Variants   []VariantResult `gorm:"foreignKey:RunID;references:RunID"`
}

// TableName returns the table name for BenchmarkRun.
func (BenchmarkRun) TableName() string {
	return "benchmark_runs"
}

// VariantResult is the aggregate of one algorithm variant within a run.
type VariantResult struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID       string    `gorm:"column:run_id;type:varchar(64);index"`
	Algorithm   string    `gorm:"column:algorithm;type:varchar(128);index"`
	Generator   string    `gorm:"column:generator;type:varchar(32)"`
	Vertices    uint64    `gorm:"column:vertices"`
	Edges       uint64    `gorm:"column:edges"`
	UnionRatio  float64   `gorm:"column:union_ratio"`
	Threads     int       `gorm:"column:threads"`
	Repetitions int       `gorm:"column:repetitions"`
	MeanOpsMs   float64   `gorm:"column:mean_ops_per_ms"`
	StdDevOpsMs float64   `gorm:"column:stddev_ops_per_ms"`
	RemoteRatio float64   `gorm:"column:remote_ratio"`
	Imbalance   float64   `gorm:"column:imbalance"`
	Verified    *bool     `gorm:"column:verified"`
	Metrics     JSONField `gorm:"column:metrics;type:json"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for VariantResult.
func (VariantResult) TableName() string {
	return "variant_results"
}

// FromResult converts a bench result into a row of run runID.
func FromResult(runID string, r *bench.Result) (VariantResult, error) {
	m, err := json.Marshal(r.Metrics)
	if err != nil {
		return VariantResult{}, err
	}
	v := VariantResult{
		RunID:       runID,
		Algorithm:   r.Algorithm,
		Generator:   r.Workload.Generator,
		Vertices:    r.Workload.Vertices,
		Edges:       r.Workload.Edges,
		UnionRatio:  r.UnionRatio,
		Threads:     r.Threads,
		Repetitions: len(r.Runs),
		MeanOpsMs:   r.Throughput.Mean,
		StdDevOpsMs: r.Throughput.StdDev,
		RemoteRatio: statistics.RemoteRatio(r.Metrics),
		Imbalance:   r.Imbalance,
		Metrics:     m,
	}
	if r.Verify != nil {
		ok := r.Verify.OK()
		v.Verified = &ok
	}
	return v, nil
}

// JSONField stores raw JSON in a json/text column.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
