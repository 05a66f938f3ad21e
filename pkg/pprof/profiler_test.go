package pprof

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []ProfileType
		wantErr bool
	}{
		{"empty uses defaults", "", DefaultProfileTypes(), false},
		{"single", "heap", []ProfileType{ProfileHeap}, false},
		{"mixed case and spaces", " CPU , mutex", []ProfileType{ProfileCPU, ProfileMutex}, false},
		{"duplicates collapse", "cpu,cpu,heap", []ProfileType{ProfileCPU, ProfileHeap}, false},
		{"unknown", "cpu,threadcreate", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfileTypes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfiler_StartStop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pprof")
	p := NewProfiler(dir, []ProfileType{ProfileHeap, ProfileGoroutine}, nil)

	require.NoError(t, p.Start("bench"))
	assert.Error(t, p.Start("again"))

	paths, err := p.Stop()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "bench-heap.pprof"),
		filepath.Join(dir, "bench-goroutine.pprof"),
	}, paths)
	for _, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	paths, err = p.Stop()
	assert.NoError(t, err)
	assert.Nil(t, paths)
}

func TestProfiler_CPU(t *testing.T) {
	dir := t.TempDir()
	p := NewProfiler(dir, []ProfileType{ProfileCPU}, nil)

	require.NoError(t, p.Start("run"))
	paths, err := p.Stop()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "run-cpu.pprof")}, paths)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}
