package service

import (
	"sync"

	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/pkg/metrics"
)

// LiveSource is the metrics.Source of whichever DSU is being benchmarked.
// Scrapes between variants see no counters.
type LiveSource struct {
	mu sync.RWMutex
	d  dsu.DSU
}

var _ metrics.Source = (*LiveSource)(nil)

// Set switches the source to d. Set(nil) returns only after in-flight scrapes
// finish, so d may be closed right after.
func (l *LiveSource) Set(d dsu.DSU) {
	l.mu.Lock()
	l.d = d
	l.mu.Unlock()
}

func (l *LiveSource) ClassName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.d == nil {
		return "none"
	}
	return l.d.ClassName()
}

func (l *LiveSource) CollectMetrics() metrics.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.d == nil {
		return metrics.Snapshot{}
	}
	return l.d.CollectMetrics()
}

func (l *LiveSource) CollectHistMetrics() metrics.HistSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.d == nil {
		return metrics.HistSnapshot{}
	}
	return l.d.CollectHistMetrics()
}
