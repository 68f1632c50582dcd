package profiling

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/psysupport/psysupport-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes_Default(t *testing.T) {
	got, err := parseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, defaultProfileTypes, got)
}

func TestParseProfileTypes_CustomDeduplicates(t *testing.T) {
	got, err := parseProfileTypes("cpu, mutex,,CPU")
	require.NoError(t, err)

	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, got)
}

func TestParseProfileTypes_Invalid(t *testing.T) {
	_, err := parseProfileTypes("cpu,heap_dump")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported O11Y_PROFILING_SAMPLE_TYPES")
}

func TestTagList_SkipsEmptyAndSorts(t *testing.T) {
	got := tagList(map[string]string{
		"service_name": "psysupport-api",
		"instance":     "",
		"environment":  "staging",
	})
	assert.Equal(t, []string{"environment=staging", "service_name=psysupport-api"}, got)
}

func TestInitProfiler_Disabled(t *testing.T) {
	stop, err := InitProfiler(config.ProfilingConfig{}, config.ObservabilityConfig{}, "development")
	require.NoError(t, err)
	assert.NotPanics(t, stop)
}

func TestInitProfiler_EnabledWithoutEndpoint(t *testing.T) {
	_, err := InitProfiler(config.ProfilingConfig{Enabled: true}, config.ObservabilityConfig{}, "development")
	assert.Error(t, err)
}
