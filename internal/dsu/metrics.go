package dsu

import "github.com/numa-dsu/pkg/metrics"

// engineMetrics binds the accessors used on the hot path. With metrics
// disabled every accessor is the zero value and updates are discarded.
type engineMetrics struct {
	collector *metrics.Collector

	localReads    metrics.Accessor
	remoteReads   metrics.Accessor
	localCAS      metrics.Accessor
	remoteCAS     metrics.Accessor
	casFailures   metrics.Accessor
	compressions  metrics.Accessor
	unionRetries  metrics.Accessor
	lockSpins     metrics.Accessor
	wireRequests  metrics.Accessor
	wireServed    metrics.Accessor
	wireFallbacks metrics.Accessor

	findDepth     metrics.HistAccessor
	unionAttempts metrics.HistAccessor
}

func newEngineMetrics(threads int, opts Options) engineMetrics {
	c := metrics.NewCollector(threads)
	m := engineMetrics{collector: c}
	if !opts.Metrics {
		return m
	}
	m.localReads = c.Accessor(metrics.LocalReads)
	m.remoteReads = c.Accessor(metrics.RemoteReads)
	m.localCAS = c.Accessor(metrics.LocalCAS)
	m.remoteCAS = c.Accessor(metrics.RemoteCAS)
	m.casFailures = c.Accessor(metrics.CASFailures)
	m.compressions = c.Accessor(metrics.Compressions)
	m.unionRetries = c.Accessor(metrics.UnionRetries)
	m.lockSpins = c.Accessor(metrics.LockSpins)
	m.wireRequests = c.Accessor(metrics.WireRequests)
	m.wireServed = c.Accessor(metrics.WireServed)
	m.wireFallbacks = c.Accessor(metrics.WireFallbacks)
	m.findDepth = c.HistAccessor(metrics.FindDepth, opts.HistMax)
	m.unionAttempts = c.HistAccessor(metrics.UnionAttempts, opts.HistMax)
	return m
}

func (m *engineMetrics) read(tid int, remote bool) {
	if remote {
		m.remoteReads.Inc(1, tid)
	} else {
		m.localReads.Inc(1, tid)
	}
}

func (m *engineMetrics) cas(tid int, remote, ok bool) {
	if remote {
		m.remoteCAS.Inc(1, tid)
	} else {
		m.localCAS.Inc(1, tid)
	}
	if !ok {
		m.casFailures.Inc(1, tid)
	}
}

func (m *engineMetrics) reset() {
	m.collector.Reset()
}

func (m *engineMetrics) snapshot() metrics.Snapshot {
	return m.collector.Combine()
}

func (m *engineMetrics) histSnapshot() metrics.HistSnapshot {
	return m.collector.CombineHist()
}
