package numa

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MaxNodes is the widest machine the packed owner mask can describe.
const MaxNodes = 16

// DefaultSysfsRoot is where Linux exposes NUMA nodes.
const DefaultSysfsRoot = "/sys/devices/system/node"

// DetectNodes reads node CPU lists from sysfs. Nodes without CPUs are kept
// since memory-only nodes still receive replicas.
func DetectNodes(root string) ([]Node, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}
	dirs, err := filepath.Glob(filepath.Join(root, "node[0-9]*"))
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no NUMA nodes under %s", root)
	}

	nodes := make([]Node, 0, len(dirs))
	for _, dir := range dirs {
		id, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(dir), "node"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "cpulist"))
		if err != nil {
			return nil, fmt.Errorf("read cpulist of node %d: %w", id, err)
		}
		cpus, err := ParseCPUList(string(raw))
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		nodes = append(nodes, Node{ID: id, CPUs: cpus})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	// Node ids index replica tables, so they must be dense.
	for i := range nodes {
		nodes[i].ID = i
	}
	return nodes, nil
}

// ParseCPUList parses the kernel list format, e.g. "0-3,8,10-11".
func ParseCPUList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad cpu list %q", s)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(hi); err != nil || end < start {
				return nil, fmt.Errorf("bad cpu range %q", part)
			}
		}
		for c := start; c <= end; c++ {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}
