package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CombineSumsThreads(t *testing.T) {
	c := NewCollector(4)
	reads := c.Accessor(LocalReads)

	var wg sync.WaitGroup
	for tid := 0; tid < 4; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				reads.Inc(1, tid)
			}
		}(tid)
	}
	wg.Wait()

	snap := c.Combine()
	assert.Equal(t, uint64(4000), snap[LocalReads])
}

func TestCollector_AccessorIsShared(t *testing.T) {
	c := NewCollector(2)
	c.Accessor(RemoteCAS).Inc(3, 0)
	c.Accessor(RemoteCAS).Inc(4, 1)

	assert.Equal(t, uint64(7), c.Combine()[RemoteCAS])
}

func TestAccessor_ZeroValueDiscards(t *testing.T) {
	var a Accessor
	var h HistAccessor

	a.Inc(1, 0)
	h.Observe(5, 0)
	assert.False(t, a.Enabled())
	assert.False(t, h.Enabled())
}

func TestHistAccessor_Clamps(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   []uint64
	}{
		{"in range", []int{0, 1, 1, 3}, []uint64{1, 2, 0, 1}},
		{"above max", []int{3, 4, 100}, []uint64{0, 0, 0, 3}},
		{"negative", []int{-2}, []uint64{1, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(2)
			h := c.HistAccessor(FindDepth, 3)
			for i, v := range tt.values {
				h.Observe(v, i%2)
			}
			assert.Equal(t, tt.want, c.CombineHist()[FindDepth])
		})
	}
}

func TestHistSnapshot_TotalAndMean(t *testing.T) {
	h := HistSnapshot{FindDepth: {2, 0, 2}}

	assert.Equal(t, uint64(4), h.Total(FindDepth))
	assert.InDelta(t, 1.0, h.Mean(FindDepth), 1e-9)
	assert.Equal(t, 0.0, h.Mean("missing"))
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector(2)
	a := c.Accessor(Compressions)
	h := c.HistAccessor(UnionAttempts, 4)
	a.Inc(5, 0)
	a.Inc(6, 1)
	h.Observe(1, 0)
	h.Observe(2, 1)

	c.ResetThread(0)
	assert.Equal(t, uint64(6), c.Combine()[Compressions])
	assert.Equal(t, uint64(1), c.CombineHist().Total(UnionAttempts))

	c.Reset()
	assert.Equal(t, uint64(0), c.Combine()[Compressions])
	assert.Equal(t, uint64(0), c.CombineHist().Total(UnionAttempts))
}

func TestSnapshot_NamesAndAdd(t *testing.T) {
	s := Snapshot{"b": 1, "a": 2}
	s.Add(Snapshot{"a": 3, "c": 1})

	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	assert.Equal(t, uint64(5), s["a"])
}

type fakeSource struct{}

func (fakeSource) ClassName() string { return "DSU_Test" }
func (fakeSource) CollectMetrics() Snapshot {
	return Snapshot{LocalReads: 10, RemoteReads: 2}
}
func (fakeSource) CollectHistMetrics() HistSnapshot {
	return HistSnapshot{FindDepth: {1, 2, 3}}
}

func TestPrometheusCollector(t *testing.T) {
	c := NewPrometheusCollector("numadsu", fakeSource{})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP numadsu_dsu_events_total DSU engine events summed over all threads.
# TYPE numadsu_dsu_events_total counter
numadsu_dsu_events_total{algorithm="DSU_Test",event="local_reads"} 10
numadsu_dsu_events_total{algorithm="DSU_Test",event="remote_reads"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "numadsu_dsu_events_total"))

	count, err := testutil.GatherAndCount(reg, "numadsu_dsu_distribution")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "2", BucketLabel(2, 5))
	assert.Equal(t, ">=5", BucketLabel(5, 5))
}
