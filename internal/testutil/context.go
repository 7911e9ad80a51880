// Package testutil provides test helpers shared across hookprof packages.
package testutil

import (
	"context"
	"testing"
	"time"
)

// NewTestContext returns a context that times out after 30 seconds and is
// cancelled when the test completes.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
