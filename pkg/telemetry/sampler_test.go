package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		sampler    string
		samplerArg string
		want       string
	}{
		{"", "", "AlwaysOnSampler"},
		{"always_on", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased"},
		{"parentbased_always_on", "", "ParentBased"},
		{"parentbased_always_off", "", "ParentBased"},
		{"parentbased_traceidratio", "0.1", "ParentBased"},
		{"bogus", "", "AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			s := createSampler(&Config{Sampler: tt.sampler, SamplerArg: tt.samplerArg})
			assert.Contains(t, s.Description(), tt.want)
		})
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 1.0},
		{"0.5", 0.5},
		{"0", 0},
		{"1", 1.0},
		{"0.001", 0.001},
		{"invalid", 1.0},
		{"-0.5", 0},
		{"1.5", 1.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseRatio(tt.input), "ratio %q", tt.input)
	}
}
