package config

import (
	"github.com/coral-mesh/hookprof/internal/constants"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Site: SiteConfig{
			URL:         constants.DefaultURL,
			CacheSize:   constants.DefaultCacheSize,
			HTTPTimeout: constants.DefaultHTTPTimeout,
		},
		Output: OutputConfig{
			Format: constants.DefaultFormat,
		},
		Logging: LoggingConfig{
			Level: constants.DefaultLogLevel,
		},
	}
}
