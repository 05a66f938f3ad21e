package service

import (
	"github.com/numa-dsu/internal/dsu"
	"github.com/numa-dsu/internal/workload"
	"github.com/numa-dsu/pkg/config"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/numa"
	"github.com/numa-dsu/pkg/utils"
)

// Variant sets accepted by Variants.
const (
	VariantsConfig = "config"
	VariantsAll    = "all"
)

// OptionsFromConfig converts the dsu section into engine options.
func OptionsFromConfig(c config.DSUConfig, logger utils.Logger) (dsu.Options, error) {
	alg, err := dsu.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return dsu.Options{}, err
	}
	comp, err := dsu.ParseCompression(c.Compression)
	if err != nil {
		return dsu.Options{}, err
	}
	own, err := dsu.ParseOwnership(c.Ownership)
	if err != nil {
		return dsu.Options{}, err
	}
	return dsu.Options{
		Algorithm:            alg,
		Compression:          comp,
		CrossNodeCompression: c.CrossNodeCompression,
		Ownership:            own,
		Wire:                 c.Wire,
		Metrics:              c.Metrics,
		Compaction:           c.Compaction,
		HistMax:              c.HistMax,
		WireWarnSpins:        c.WireWarnSpins,
		Logger:               logger,
	}, nil
}

// Variants expands set into the variants to benchmark. "config" is base
// alone. "all" is the sequential reference, both classic policies, every
// NUMA ownership/compression pair, and the cross-node and wire extensions;
// each keeps base's metrics, compaction and logging settings.
func Variants(base dsu.Options, set string) ([]dsu.Options, error) {
	switch set {
	case "", VariantsConfig:
		return []dsu.Options{base}, nil
	case VariantsAll:
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown variant set %q", set)
	}

	with := func(alg dsu.Algorithm, comp dsu.Compression, own dsu.Ownership, xnode, wire bool) dsu.Options {
		o := base
		o.Algorithm = alg
		o.Compression = comp
		o.Ownership = own
		o.CrossNodeCompression = xnode
		o.Wire = wire
		return o
	}

	out := []dsu.Options{
		with(dsu.AlgorithmSequential, dsu.CompressionHalving, dsu.OwnershipEager, false, false),
		with(dsu.AlgorithmClassic, dsu.CompressionHalving, dsu.OwnershipEager, false, false),
		with(dsu.AlgorithmClassic, dsu.CompressionSquashing, dsu.OwnershipEager, false, false),
	}
	for _, own := range []dsu.Ownership{dsu.OwnershipEager, dsu.OwnershipLazy} {
		for _, comp := range []dsu.Compression{dsu.CompressionHalving, dsu.CompressionSquashing} {
			out = append(out, with(dsu.AlgorithmNUMA, comp, own, false, false))
		}
	}
	return append(out,
		with(dsu.AlgorithmNUMA, dsu.CompressionHalving, dsu.OwnershipEager, true, false),
		with(dsu.AlgorithmNUMA, dsu.CompressionHalving, dsu.OwnershipEager, false, true),
		with(dsu.AlgorithmNUMA, dsu.CompressionHalving, dsu.OwnershipLazy, false, true),
	), nil
}

// TopologyConfig converts the topology and memory sections.
func TopologyConfig(cfg *config.Config, logger utils.Logger) numa.TopologyConfig {
	return numa.TopologyConfig{
		Nodes:     cfg.Topology.Nodes,
		Threads:   cfg.Topology.Threads,
		Placement: numa.Placement(cfg.Topology.Placement),
		Pin:       cfg.Topology.Pin,
		Backend:   numa.Backend(cfg.Memory.Backend),
		SysfsRoot: cfg.Topology.SysfsRoot,
		Logger:    logger,
	}
}

// WorkloadParams converts the workload section for a machine with nodes nodes.
func WorkloadParams(cfg *config.Config, nodes int) workload.Params {
	return workload.Params{
		Generator: cfg.Workload.Generator,
		Vertices:  cfg.Workload.Vertices,
		Edges:     cfg.Workload.Edges,
		Nodes:     nodes,
		CrossProb: cfg.Workload.CrossNodeProb,
		Seed:      cfg.Workload.Seed,
	}
}
