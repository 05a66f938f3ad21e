package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Source yields combined snapshots. Implemented by every DSU variant.
type Source interface {
	ClassName() string
	CollectMetrics() Snapshot
	CollectHistMetrics() HistSnapshot
}

// PrometheusCollector exports the counters of one Source as const metrics.
// Values are pulled at scrape time so the hot path never touches Prometheus.
type PrometheusCollector struct {
	source    Source
	counter   *prometheus.Desc
	histogram *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector wraps source.
func NewPrometheusCollector(namespace string, source Source) *PrometheusCollector {
	return &PrometheusCollector{
		source: source,
		counter: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dsu", "events_total"),
			"DSU engine events summed over all threads.",
			[]string{"algorithm", "event"}, nil,
		),
		histogram: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dsu", "distribution"),
			"Bounded DSU histograms; the largest bucket also holds clamped values.",
			[]string{"algorithm", "name"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.counter
	ch <- c.histogram
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	algo := c.source.ClassName()
	snap := c.source.CollectMetrics()
	for _, name := range snap.Names() {
		ch <- prometheus.MustNewConstMetric(c.counter, prometheus.CounterValue, float64(snap[name]), algo, name)
	}

	for name, buckets := range c.source.CollectHistMetrics() {
		cumulative := make(map[float64]uint64, len(buckets))
		var count, sum uint64
		for i, n := range buckets {
			count += n
			sum += uint64(i) * n
			cumulative[float64(i)] = count
		}
		ch <- prometheus.MustNewConstHistogram(c.histogram, count, float64(sum), cumulative, algo, name)
	}
}

// BucketLabel formats a histogram bucket index for reports.
func BucketLabel(i, max int) string {
	if i == max {
		return ">=" + strconv.Itoa(i)
	}
	return strconv.Itoa(i)
}
