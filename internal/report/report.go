// Package report turns benchmark results into CSV and JSON files.
package report

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/statistics"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/metrics"
	"github.com/numa-dsu/pkg/writer"
)

// Report formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Host describes the machine the results were measured on.
type Host struct {
	Name      string `json:"name"`
	Nodes     int    `json:"nodes"`
	Threads   int    `json:"threads"`
	Placement string `json:"placement"`
	Backend   string `json:"backend"`
}

// Document is the JSON report.
type Document struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Host        Host            `json:"host"`
	Results     []*bench.Result `json:"results"`
}

var baseColumns = []string{
	"algorithm", "generator", "vertices", "edges", "union_ratio", "threads", "nodes", "runs",
	"ops_per_ms_mean", "ops_per_ms_stddev", "ops_per_ms_median", "remote_ratio", "imbalance", "verified",
}

// Table flattens results into one row per variant. Counter columns follow the
// fixed columns in metrics.CounterNames order.
func Table(results []*bench.Result) writer.Table {
	t := writer.Table{Header: append(append([]string{}, baseColumns...), metrics.CounterNames...)}
	for _, r := range results {
		row := []string{
			r.Algorithm,
			r.Workload.Generator,
			strconv.FormatUint(r.Workload.Vertices, 10),
			strconv.FormatUint(r.Workload.Edges, 10),
			formatFloat(r.UnionRatio),
			strconv.Itoa(r.Threads),
			strconv.Itoa(r.Nodes),
			strconv.Itoa(len(r.Runs)),
			formatFloat(r.Throughput.Mean),
			formatFloat(r.Throughput.StdDev),
			formatFloat(r.Throughput.Median),
			formatFloat(statistics.RemoteRatio(r.Metrics)),
			formatFloat(r.Imbalance),
			verified(r.Verify),
		}
		for _, name := range metrics.CounterNames {
			row = append(row, strconv.FormatUint(r.Metrics[name], 10))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Write stores doc in dir as base.csv and/or base.json and returns the paths written.
func Write(dir, base string, doc Document, formats []string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		var err error
		var path string
		switch f {
		case FormatCSV:
			enc := writer.NewCSVWriter()
			path = filepath.Join(dir, base+enc.Extension())
			err = writer.WriteFile[writer.Table](enc, Table(doc.Results), path)
		case FormatJSON:
			enc := writer.NewPrettyJSONWriter[Document]()
			path = filepath.Join(dir, base+enc.Extension())
			err = writer.WriteFile[Document](enc, doc, path)
		default:
			return paths, apperrors.Newf(apperrors.CodeInvalidInput, "unsupported report format %q", f)
		}
		if err != nil {
			return paths, apperrors.Wrap(apperrors.CodeStorageError, "failed to write "+path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func verified(v *bench.Verification) string {
	switch {
	case v == nil:
		return "skipped"
	case v.OK():
		return "ok"
	default:
		return "failed"
	}
}
