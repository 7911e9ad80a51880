package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/coral-mesh/hookprof/internal/profiler"
	"github.com/coral-mesh/hookprof/internal/site"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Validate validates the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	if u, err := url.Parse(c.Site.URL); err != nil {
		add("site.url", err)
	} else if c.Site.URL != "" && (u.Scheme == "" || u.Host == "") {
		add("site.url", fmt.Errorf("%q must be an absolute URL", c.Site.URL))
	}
	if c.Site.RemoteURL != "" {
		if u, err := url.Parse(c.Site.RemoteURL); err != nil || u.Scheme == "" {
			add("site.remote_url", fmt.Errorf("%q must be an absolute URL", c.Site.RemoteURL))
		}
	}
	if c.Site.CacheSize < 0 {
		add("site.cache_size", fmt.Errorf("must not be negative"))
	}
	if c.Site.HTTPTimeout < 0 {
		add("site.http_timeout", fmt.Errorf("must not be negative"))
	}
	for _, p := range c.Site.Plugins {
		if !slices.Contains(site.PluginNames, p) {
			add("site.plugins", fmt.Errorf("unknown plugin %q", p))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.Profiler.Stages)) {
		add("profiler.stages", ValidateStage(name))
	}

	add("output.format", ValidateFormat(c.Output.Format))
	add("logging.level", ValidateLogLevel(c.Logging.Level))

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// ValidateStage checks that name is a stage. Unlike a --stage focus it
// accepts neither "all" nor an empty name.
func ValidateStage(name string) error {
	if slices.Contains(profiler.StageNames, name) {
		return nil
	}
	return fmt.Errorf("%w %q: must be one of %s",
		profiler.ErrInvalidStage, name, strings.Join(profiler.StageNames, ", "))
}
