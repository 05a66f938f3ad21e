package dsu

import (
	"strings"

	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// Algorithm selects the DSU implementation.
type Algorithm string

const (
	// AlgorithmNUMA replicates cells per node.
	AlgorithmNUMA Algorithm = "numa"
	// AlgorithmClassic is the lock-free DSU over one shared table.
	AlgorithmClassic Algorithm = "classic"
	// AlgorithmSequential is the single-threaded reference.
	AlgorithmSequential Algorithm = "sequential"
)

// Compression selects how Find shortens paths.
type Compression string

const (
	// CompressionSquashing repoints each visited cell and steps to its parent.
	CompressionSquashing Compression = "squashing"
	// CompressionHalving repoints each visited cell and steps to its grandparent.
	CompressionHalving Compression = "halving"
)

// Ownership selects how a merged root's replicas are updated.
type Ownership string

const (
	// OwnershipEager CASes every replica right after the commit.
	OwnershipEager Ownership = "eager"
	// OwnershipLazy serializes the link through a per-vertex lock word.
	OwnershipLazy Ownership = "lazy"
)

// DefaultHistMax is the default clamp for histogram values.
const DefaultHistMax = 64

// DefaultWireWarnSpins is how long a wire requester waits before logging.
const DefaultWireWarnSpins = 1 << 24

// Options is the policy value chosen at construction.
type Options struct {
	Algorithm   Algorithm
	Compression Compression
	// CrossNodeCompression allows compressing with grandparents read from remote replicas.
	CrossNodeCompression bool
	Ownership            Ownership
	// Wire delegates remote traversals to threads on the owning node.
	Wire bool
	// Metrics enables counters and histograms.
	Metrics bool
	// Compaction disables all path compression when false.
	Compaction    bool
	HistMax       int
	WireWarnSpins int
	Logger        utils.Logger
}

// DefaultOptions returns the eager halving NUMA variant with compression and metrics on.
func DefaultOptions() Options {
	return Options{
		Algorithm:     AlgorithmNUMA,
		Compression:   CompressionHalving,
		Ownership:     OwnershipEager,
		Metrics:       true,
		Compaction:    true,
		HistMax:       DefaultHistMax,
		WireWarnSpins: DefaultWireWarnSpins,
	}
}

func (o *Options) normalize() error {
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmNUMA
	}
	if o.Compression == "" {
		o.Compression = CompressionHalving
	}
	if o.Ownership == "" {
		o.Ownership = OwnershipEager
	}
	if o.HistMax <= 0 {
		o.HistMax = DefaultHistMax
	}
	if o.WireWarnSpins <= 0 {
		o.WireWarnSpins = DefaultWireWarnSpins
	}
	if o.Logger == nil {
		o.Logger = utils.GetGlobalLogger()
	}

	var err error
	if o.Algorithm, err = ParseAlgorithm(string(o.Algorithm)); err != nil {
		return err
	}
	if o.Compression, err = ParseCompression(string(o.Compression)); err != nil {
		return err
	}
	if o.Ownership, err = ParseOwnership(string(o.Ownership)); err != nil {
		return err
	}
	return nil
}

// ParseAlgorithm parses an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(s)); a {
	case AlgorithmNUMA, AlgorithmClassic, AlgorithmSequential:
		return a, nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown algorithm %q", s)
}

// ParseCompression parses a compression policy name.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case CompressionSquashing, CompressionHalving:
		return c, nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown compression %q", s)
}

// ParseOwnership parses an ownership protocol name.
func ParseOwnership(s string) (Ownership, error) {
	switch o := Ownership(strings.ToLower(s)); o {
	case OwnershipEager, OwnershipLazy:
		return o, nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown ownership %q", s)
}
