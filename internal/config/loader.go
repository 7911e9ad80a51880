// Package config provides configuration loading and management.
//
// Configuration is layered: defaults, then the user config file, then a
// project config in the working directory, then HOOKPROF_* environment
// variables. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/hookprof/internal/constants"
)

// Loader handles loading and saving configuration files.
type Loader struct {
	path       string
	projectDir string
	// envOverrides lists the variables applied by the last Load.
	envOverrides []string
}

// NewLoader creates a new config loader.
// The config file is resolved in this order:
//  1. HOOKPROF_CONFIG environment variable.
//  2. ~/.hookprof/config.yaml.
//  3. /tmp/hookprof-fallback/config.yaml when there is no home directory.
//
// A .hookprof/config.yaml in the working directory is layered on top.
func NewLoader() *Loader {
	l := &Loader{}
	if wd, err := os.Getwd(); err == nil {
		l.projectDir = wd
	}

	if path := os.Getenv(constants.ConfigEnvVar); path != "" {
		l.path = path
		return l
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp/hookprof-fallback"
	}
	l.path = filepath.Join(homeDir, constants.DefaultDir, constants.ConfigFile)
	return l
}

// NewLoaderWithPath creates a loader reading only the given file.
func NewLoaderWithPath(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the path of the user config file.
func (l *Loader) Path() string {
	return l.path
}

// ProjectConfigPath returns the path of the project config file, or "" when
// project config is not consulted.
func (l *Loader) ProjectConfigPath() string {
	if l.projectDir == "" {
		return ""
	}
	return filepath.Join(l.projectDir, constants.DefaultDir, constants.ConfigFile)
}

// Load returns the effective configuration. Missing files are skipped.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{l.path, l.ProjectConfigPath()} {
		if path == "" {
			continue
		}
		if err := mergeFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applied, err := MergeFromEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	l.envOverrides = applied

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// EnvOverrides returns the HOOKPROF_* variables the last Load applied.
func (l *Loader) EnvOverrides() []string {
	return l.envOverrides
}

// mergeFromFile decodes a YAML file over cfg, leaving keys the file does not
// set untouched.
func mergeFromFile(cfg *Config, path string) error {
	//nolint:gosec // G304: Path is the user's own config file.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to the user config file.
func (l *Loader) Save(cfg *Config) error {
	dir := filepath.Dir(l.path)
	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	//nolint:gosec // G306: Config file is not sensitive
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
