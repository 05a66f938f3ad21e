// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/numa-dsu/pkg/config"
)

// SmallBenchYAML returns a two-node, two-thread configuration over a 256
// vertex clustered workload, small enough to run every variant in a unit
// test. extra is appended verbatim and may add top-level sections other than
// topology, memory, workload and bench.
func SmallBenchYAML(outputDir, extra string) string {
	return fmt.Sprintf(`
topology:
  nodes: 2
  threads: 2
  pin: false
memory:
  backend: heap
workload:
  generator: clustered
  vertices: 256
  edges: 512
  seed: 3
bench:
  repetitions: 1
  warmup: 0
  output_dir: %s
  formats: [csv, json]
%s`, outputDir, extra)
}

// SmallBenchConfig loads SmallBenchYAML with reports going to a temp directory.
func SmallBenchConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader("yaml", []byte(SmallBenchYAML(filepath.Join(t.TempDir(), "results"), extra)))
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	return cfg
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}
