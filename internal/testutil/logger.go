package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// LogEnvVar turns on test logging when set to a non-empty value.
const LogEnvVar = "HOOKPROF_TEST_LOG"

// NewTestLogger returns a debug logger for t. Its output is discarded unless
// HOOKPROF_TEST_LOG is set, in which case lines go through t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	var out io.Writer = io.Discard
	if os.Getenv(LogEnvVar) != "" {
		out = zerolog.ConsoleWriter{Out: tWriter{t}, NoColor: true}
	}
	return zerolog.New(out).Level(zerolog.DebugLevel).With().Str("test", t.Name()).Logger()
}

type tWriter struct {
	t *testing.T
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
