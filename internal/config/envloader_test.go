package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFromEnv(t *testing.T) {
	envVars := map[string]string{
		"HOOKPROF_URL":            "http://example.test/post/caching",
		"HOOKPROF_SAVE_QUERIES":   "false",
		"HOOKPROF_CACHE_SIZE":     "64",
		"HOOKPROF_REMOTE_URL":     "http://remote.test/ping",
		"HOOKPROF_PLUGINS":        "seo, related,",
		"HOOKPROF_HTTP_TIMEOUT":   "3s",
		"HOOKPROF_FORMAT":         "json",
		"HOOKPROF_LOG_LEVEL":      "debug",
		"HOOKPROF_LOCATION_ROOTS": "/srv/site",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg := DefaultConfig()
	applied, err := MergeFromEnv(cfg)
	require.NoError(t, err)

	assert.Len(t, applied, len(envVars))
	assert.Equal(t, "http://example.test/post/caching", cfg.Site.URL)
	require.NotNil(t, cfg.Site.SaveQueries)
	assert.False(t, *cfg.Site.SaveQueries)
	assert.Equal(t, 64, cfg.Site.CacheSize)
	assert.Equal(t, "http://remote.test/ping", cfg.Site.RemoteURL)
	assert.Equal(t, []string{"seo", "related"}, cfg.Site.Plugins)
	assert.Equal(t, 3*time.Second, cfg.Site.HTTPTimeout)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"/srv/site"}, cfg.Profiler.LocationRoots)
}

func TestMergeFromEnv_UnsetLeavesDefaults(t *testing.T) {
	for _, key := range []string{"HOOKPROF_URL", "HOOKPROF_SAVE_QUERIES", "HOOKPROF_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := DefaultConfig()
	applied, err := MergeFromEnv(cfg)
	require.NoError(t, err)

	assert.NotContains(t, applied, "HOOKPROF_URL")
	assert.Nil(t, cfg.Site.SaveQueries)
	assert.Equal(t, DefaultConfig().Site.URL, cfg.Site.URL)
	assert.Equal(t, DefaultConfig().Output.Format, cfg.Output.Format)
}

func TestMergeFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"HOOKPROF_SAVE_QUERIES", "sometimes"},
		{"HOOKPROF_CACHE_SIZE", "lots"},
		{"HOOKPROF_HTTP_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := MergeFromEnv(DefaultConfig())
			assert.ErrorContains(t, err, "invalid "+tt.key)
		})
	}
}

func TestMergeFromEnv_NilConfig(t *testing.T) {
	applied, err := MergeFromEnv(nil)
	assert.NoError(t, err)
	assert.Empty(t, applied)
}
