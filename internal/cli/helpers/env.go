package helpers

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/hookprof/internal/config"
	"github.com/coral-mesh/hookprof/internal/logging"
)

// Env is what the root command resolves before any subcommand runs.
type Env struct {
	Config *config.Config
	Logger zerolog.Logger
	Loader *config.Loader
}

// Load reads the configuration and builds the logger. An explicit config
// path replaces the default lookup; a non-empty level overrides the
// configured one. Logs are written to stderr.
func (e *Env) Load(configPath, level string, stderr io.Writer) error {
	e.Loader = config.NewLoader()
	if configPath != "" {
		e.Loader = config.NewLoaderWithPath(configPath)
	}

	cfg, err := e.Loader.Load()
	if err != nil {
		return err
	}
	if level != "" {
		if err := config.ValidateLogLevel(level); err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	e.Config = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Pretty = logging.IsTerminal(stderr)
	logCfg.Output = stderr
	e.Logger = logging.New(logCfg)
	return nil
}
