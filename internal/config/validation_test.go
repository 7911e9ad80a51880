package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hookprof/internal/profiler"
)

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml", "csv"} {
		assert.NoError(t, ValidateFormat(f), f)
	}
	assert.ErrorContains(t, ValidateFormat("xml"), "must be one of table, json, yaml, csv")
}

func TestNormalizeOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "asc", want: "ASC"},
		{in: "DESC", want: "DESC"},
		{in: "Desc", want: "DESC"},
		{in: "random", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeOrder(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateLogLevel(t *testing.T) {
	assert.NoError(t, ValidateLogLevel("TRACE"))
	assert.Error(t, ValidateLogLevel("verbose"))
}

func TestValidateStage(t *testing.T) {
	assert.NoError(t, ValidateStage(profiler.StageMainQuery))
	assert.ErrorIs(t, ValidateStage(profiler.AllFocus), profiler.ErrInvalidStage)
	assert.ErrorIs(t, ValidateStage(""), profiler.ErrInvalidStage)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Site.URL = "localhost"
	cfg.Site.CacheSize = -1
	cfg.Site.Plugins = []string{"seo", "analytics"}
	cfg.Output.Format = "xml"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	var multi *MultiValidationError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 5)
	assert.Contains(t, err.Error(), "validation failed with 5 errors")
	assert.Contains(t, err.Error(), `site.plugins: unknown plugin "analytics"`)
}

func TestValidationError_Single(t *testing.T) {
	err := &MultiValidationError{Errors: []ValidationError{{Field: "output.format", Message: "bad"}}}
	assert.Equal(t, "output.format: bad", err.Error())
}
