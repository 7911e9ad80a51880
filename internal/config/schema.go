package config

import (
	"time"

	"github.com/coral-mesh/hookprof/internal/profiler"
	"github.com/coral-mesh/hookprof/internal/site"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.hookprof/config.yaml.
type Config struct {
	Version  string         `yaml:"version"`
	Site     SiteConfig     `yaml:"site"`
	Profiler ProfilerConfig `yaml:"profiler"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig describes the site being profiled.
type SiteConfig struct {
	URL string `yaml:"url" env:"HOOKPROF_URL"`
	// Database is a DuckDB data source; empty uses an in-memory database.
	Database string `yaml:"database,omitempty" env:"HOOKPROF_DATABASE"`
	// SaveQueries is left nil when unset; an explicit false makes profiling
	// refuse to run.
	SaveQueries *bool         `yaml:"save_queries,omitempty" env:"HOOKPROF_SAVE_QUERIES"`
	CacheSize   int           `yaml:"cache_size" env:"HOOKPROF_CACHE_SIZE"`
	RemoteURL   string        `yaml:"remote_url,omitempty" env:"HOOKPROF_REMOTE_URL"`
	Plugins     []string      `yaml:"plugins,omitempty" env:"HOOKPROF_PLUGINS"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HOOKPROF_HTTP_TIMEOUT"`
}

// ProfilerConfig tunes the profiler.
type ProfilerConfig struct {
	// Stages overrides the boundary hooks of individual stages.
	Stages map[string][]string `yaml:"stages,omitempty"`
	// LocationRoots are trimmed from callback locations. The working
	// directory is always tried first.
	LocationRoots []string `yaml:"location_roots,omitempty" env:"HOOKPROF_LOCATION_ROOTS"`
}

// OutputConfig holds report defaults that flags override.
type OutputConfig struct {
	Format string `yaml:"format" env:"HOOKPROF_FORMAT"`
}

// LoggingConfig configures diagnostics.
type LoggingConfig struct {
	Level string `yaml:"level" env:"HOOKPROF_LOG_LEVEL"`
}

// SiteOptions converts the site section into a site.Config.
func (c *Config) SiteOptions() site.Config {
	return site.Config{
		URL:         c.Site.URL,
		DSN:         c.Site.Database,
		SaveQueries: c.Site.SaveQueries,
		CacheSize:   c.Site.CacheSize,
		RemoteURL:   c.Site.RemoteURL,
		Plugins:     c.Site.Plugins,
		HTTPTimeout: c.Site.HTTPTimeout,
	}
}

// StageHooks returns the configured stage overrides.
func (c *Config) StageHooks() profiler.StageHooks {
	return profiler.StageHooks(c.Profiler.Stages)
}
