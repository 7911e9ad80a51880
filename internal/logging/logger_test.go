package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	messages := []struct {
		level zerolog.Level
		text  string
	}{
		{zerolog.TraceLevel, "trace message"},
		{zerolog.DebugLevel, "debug message"},
		{zerolog.InfoLevel, "info message"},
		{zerolog.WarnLevel, "warn message"},
		{zerolog.ErrorLevel, "error message"},
	}

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			for _, m := range messages {
				logger.WithLevel(m.level).Msg(m.text)
			}

			for _, m := range messages {
				if m.level >= tt.want {
					assert.Contains(t, buf.String(), m.text)
				} else {
					assert.NotContains(t, buf.String(), m.text)
				}
			}
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "info", Output: &buf}).Info().Str("hook", "init").Msg("fired")

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"hook":"init"`)
	assert.Contains(t, out, `"time":`)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "info", Pretty: true, Output: &buf}).Info().Msg("pretty message")

	out := buf.String()
	assert.Contains(t, out, "pretty message")
	assert.NotContains(t, out, `"message"`)
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal, so no colors")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(New(Config{Level: "info", Output: &buf}), "profiler").Info().Msg("ran")

	assert.Contains(t, buf.String(), `"component":"profiler"`)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, os.Stderr, cfg.Output)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "log")
	if assert.NoError(t, err) {
		defer f.Close()
		assert.False(t, IsTerminal(f))
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("Warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestLevels(t *testing.T) {
	for i := 1; i < len(Levels); i++ {
		assert.Less(t, ParseLevel(Levels[i-1]), ParseLevel(Levels[i]))
	}
}
