package testutil

import (
	"database/sql"
	"testing"

	"github.com/coral-mesh/hookprof/internal/duckdb"
	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

// NewTestDatabase opens an in-memory DuckDB database whose statements are
// recorded in the returned, enabled query log. The database is closed when
// the test completes.
func NewTestDatabase(t *testing.T) (*sql.DB, *querylog.Log) {
	t.Helper()

	log := querylog.New()
	log.SetEnabled(true)
	db, err := duckdb.Open("", log)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db, log
}
