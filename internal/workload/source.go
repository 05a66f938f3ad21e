package workload

import (
	"context"

	"github.com/numa-dsu/pkg/parallel"
	"github.com/numa-dsu/pkg/utils"
)

// Source produces workloads, reusing cached edge lists when it can.
type Source struct {
	cache  Cache
	pool   parallel.PoolConfig
	logger utils.Logger
}

// NewSource creates a Source. A nil cache disables caching.
func NewSource(cache Cache, pool parallel.PoolConfig, logger utils.Logger) *Source {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}
	return &Source{cache: cache, pool: pool, logger: logger.WithField("component", "workload")}
}

// Load returns the workload for p with the given union ratio. The operation
// mix is seeded by p.Seed, so the same arguments give the same operations.
func (s *Source) Load(ctx context.Context, p Params, unionRatio float64) (*Workload, error) {
	key := p.Key()
	edges, ok, err := s.cache.Get(key)
	if err != nil {
		s.logger.Warn("Workload cache read failed for %s: %v", key, err)
		ok = false
	}
	if ok {
		s.logger.Debug("Workload cache hit for %s (%d edges)", key, len(edges))
	} else {
		edges, err = Generate(ctx, p, s.pool)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Put(key, edges); err != nil {
			s.logger.Warn("Workload cache write failed for %s: %v", key, err)
		}
		s.logger.Info("Generated %s workload: %d vertices, %d edges", p.Generator, p.Vertices, len(edges))
	}

	return &Workload{
		Params:     p,
		UnionRatio: unionRatio,
		Edges:      edges,
		Ops:        Mix(edges, unionRatio, p.Seed),
	}, nil
}
