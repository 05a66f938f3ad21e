package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed section of a benchmark (setup, a repetition, verification).
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// PhaseTimer stops a phase started with Timer.Start. Use it with defer.
type PhaseTimer struct {
	timer *Timer
	index int
}

// Stop records the phase duration. Only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	if pt == nil || pt.timer == nil {
		return 0
	}
	return pt.timer.stop(pt.index)
}

// Timer records an ordered list of phases. Phase names may repeat,
// which is how benchmark repetitions are recorded.
type Timer struct {
	mu      sync.Mutex
	name    string
	clock   Clock
	logger  Logger
	enabled bool
	started time.Time
	phases  []Phase
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger makes PrintSummary write through logger.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// WithEnabled turns every operation into a no-op when false.
func WithEnabled(enabled bool) TimerOption {
	return func(t *Timer) {
		t.enabled = enabled
	}
}

// NewTimer creates a new Timer.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:    name,
		clock:   NewRealClock(),
		enabled: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.started = t.clock.Now()
	return t
}

// Start begins a new phase.
func (t *Timer) Start(name string) *PhaseTimer {
	if !t.enabled {
		return &PhaseTimer{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: t.clock.Now()})
	return &PhaseTimer{timer: t, index: len(t.phases) - 1}
}

func (t *Timer) stop(index int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &t.phases[index]
	if !p.done {
		p.Duration = t.clock.Since(p.Start)
		p.done = true
	}
	return p.Duration
}

// TimeFunc runs fn as a phase and returns its duration.
func (t *Timer) TimeFunc(name string, fn func()) time.Duration {
	pt := t.Start(name)
	fn()
	return pt.Stop()
}

// TimeFuncWithError runs fn as a phase and returns its duration and error.
func (t *Timer) TimeFuncWithError(name string, fn func() error) (time.Duration, error) {
	pt := t.Start(name)
	err := fn()
	return pt.Stop(), err
}

// Phases returns a copy of all recorded phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

// Durations returns the durations of completed phases with the given name.
func (t *Timer) Durations(name string) []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []time.Duration
	for _, p := range t.phases {
		if p.Name == name && p.done {
			out = append(out, p.Duration)
		}
	}
	return out
}

// Total returns the time elapsed since the timer was created or reset.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.started)
}

// Summary formats every phase on its own line.
func (t *Timer) Summary() string {
	if !t.enabled {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s timing ===\n", t.name)
	for i, p := range t.Phases() {
		fmt.Fprintf(&sb, "%2d %s: %v\n", i+1, p.Name, p.Duration)
	}
	fmt.Fprintf(&sb, "Total: %v\n", t.Total())
	return sb.String()
}

// PrintSummary writes the summary at debug level through the configured logger.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.logger == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(t.Summary()), "\n") {
		t.logger.Debug("%s", line)
	}
}

// ToMap returns the timing data for JSON reports.
func (t *Timer) ToMap() map[string]interface{} {
	phases := t.Phases()
	out := make([]map[string]interface{}, 0, len(phases))
	for _, p := range phases {
		out = append(out, map[string]interface{}{
			"name": p.Name,
			"ms":   float64(p.Duration.Microseconds()) / 1000,
		})
	}
	return map[string]interface{}{
		"name":     t.name,
		"total_ms": t.Total().Milliseconds(),
		"phases":   out,
	}
}

// Reset clears all phases and restarts the total.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = nil
	t.started = t.clock.Now()
}
