// Package pprof profiles the benchmark process itself. A Profiler records a
// CPU profile across a measured section and snapshots the lookup profiles
// when it stops; Register mounts the net/http/pprof handlers on a mux.
package pprof

import (
	"fmt"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"

	"github.com/numa-dsu/pkg/utils"
)

// ProfileType names a runtime profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs}
}

// DefaultProfileTypes returns the profiles collected when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated list such as "cpu,heap,mutex".
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	var types []ProfileType
	seen := make(map[ProfileType]bool)
	for _, p := range strings.Split(s, ",") {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		if !seen[pt] {
			seen[pt] = true
			types = append(types, pt)
		}
	}
	return types, nil
}

// Profiler writes profiles of one labelled section to a directory.
type Profiler struct {
	dir    string
	types  []ProfileType
	logger utils.Logger

	mu      sync.Mutex
	label   string
	cpuFile *os.File
	running bool
}

// NewProfiler creates a profiler writing types into dir.
func NewProfiler(dir string, types []ProfileType, logger utils.Logger) *Profiler {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	if len(types) == 0 {
		types = DefaultProfileTypes()
	}
	return &Profiler{dir: dir, types: types, logger: logger}
}

func (p *Profiler) has(pt ProfileType) bool {
	for _, t := range p.types {
		if t == pt {
			return true
		}
	}
	return false
}

func (p *Profiler) path(pt ProfileType) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s-%s.pprof", p.label, pt))
}

// Start begins profiling the section named label.
func (p *Profiler) Start(label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("profiler is already running")
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create pprof directory: %w", err)
	}
	p.label = label

	if p.has(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if p.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}
	if p.has(ProfileCPU) {
		f, err := os.Create(p.path(ProfileCPU))
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		p.cpuFile = f
	}
	p.running = true
	return nil
}

// Stop ends the section and returns the profile files written.
func (p *Profiler) Stop() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil, nil
	}
	p.running = false

	var paths []string
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return nil, fmt.Errorf("failed to close CPU profile: %w", err)
		}
		paths = append(paths, p.cpuFile.Name())
		p.cpuFile = nil
	}

	for _, pt := range p.types {
		if pt == ProfileCPU {
			continue
		}
		path := p.path(pt)
		if err := writeLookup(pt, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if p.has(ProfileBlock) {
		runtime.SetBlockProfileRate(0)
	}
	if p.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(0)
	}
	p.logger.Debug("Wrote %d profiles for %s", len(paths), p.label)
	return paths, nil
}

func writeLookup(pt ProfileType, path string) error {
	prof := pprof.Lookup(string(pt))
	if prof == nil {
		return fmt.Errorf("profile %s not available", pt)
	}
	if pt == ProfileHeap || pt == ProfileAllocs {
		runtime.GC()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	return f.Close()
}

// Register mounts the standard /debug/pprof/ handlers on mux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)
}
