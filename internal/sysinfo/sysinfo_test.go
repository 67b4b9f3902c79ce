package sysinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemInfo(t *testing.T) {
	input := `MemTotal:        8388608 kB
MemFree:          524288 kB
MemAvailable:    2097152 kB
Buffers:           bogus kB
`
	total, available, err := parseMemInfo(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 8.0, total, 0.0001)
	assert.InDelta(t, 2.0, available, 0.0001)
}

func TestGetMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantrack.db")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024*1024), 0o600))

	// Memory may be unavailable off Linux; the rest is filled regardless
	metrics, _ := GetMetrics(path)
	assert.Positive(t, metrics.CPUCount)
	assert.Positive(t, metrics.Goroutines)
	assert.NotEmpty(t, metrics.GoVersion)
	assert.InDelta(t, 1.0, metrics.DatabaseSizeMB, 0.0001)
}
