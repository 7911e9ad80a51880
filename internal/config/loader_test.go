package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hookprof/internal/constants"
	"github.com/coral-mesh/hookprof/internal/profiler"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoader_MissingFileGivesDefaults(t *testing.T) {
	loader := NewLoaderWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultURL, cfg.Site.URL)
	assert.Equal(t, constants.DefaultCacheSize, cfg.Site.CacheSize)
	assert.Equal(t, constants.DefaultFormat, cfg.Output.Format)
	assert.Nil(t, cfg.Site.SaveQueries)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
site:
  url: http://example.test/post/hello-world
  save_queries: true
  plugins: [seo, shortcodes]
profiler:
  stages:
    bootstrap: [plugins_loaded, init]
output:
  format: csv
`)

	cfg, err := NewLoaderWithPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/post/hello-world", cfg.Site.URL)
	require.NotNil(t, cfg.Site.SaveQueries)
	assert.True(t, *cfg.Site.SaveQueries)
	assert.Equal(t, []string{"seo", "shortcodes"}, cfg.Site.Plugins)
	assert.Equal(t, constants.DefaultHTTPTimeout, cfg.Site.HTTPTimeout, "unset keys keep defaults")
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, []string{"plugins_loaded", "init"}, cfg.StageHooks()[profiler.StageBootstrap])
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "site:\n  url: http://file.test/\n  http_timeout: 5s\n")
	t.Setenv("HOOKPROF_URL", "http://env.test/")

	loader := NewLoaderWithPath(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env.test/", cfg.Site.URL)
	assert.Equal(t, 5*time.Second, cfg.Site.HTTPTimeout)
	assert.Contains(t, loader.EnvOverrides(), "HOOKPROF_URL")
}

func TestLoader_ProjectConfigLayersOnTop(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	writeFile(t, filepath.Join(home, "config.yaml"), "output:\n  format: json\nlogging:\n  level: debug\n")
	writeFile(t, filepath.Join(project, constants.DefaultDir, constants.ConfigFile), "output:\n  format: yaml\n")

	loader := &Loader{path: filepath.Join(home, "config.yaml"), projectDir: project}
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoader_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "site: [", "failed to parse config"},
		{"unknown stage", "profiler:\n  stages:\n    teardown: [shutdown]\n", "invalid stage"},
		{"bad format", "output:\n  format: xml\n", "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.content)

			_, err := NewLoaderWithPath(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_EnvVarSelectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(constants.ConfigEnvVar, path)

	assert.Equal(t, path, NewLoader().Path())
}

func TestLoader_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewLoaderWithPath(path)

	cfg := DefaultConfig()
	cfg.Site.RemoteURL = "http://remote.test/"
	require.NoError(t, loader.Save(cfg))
	assert.FileExists(t, path)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://remote.test/", loaded.Site.RemoteURL)
	assert.Equal(t, SchemaVersion, loaded.Version)
}
