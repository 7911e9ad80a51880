package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"

	duckdbDriver "github.com/marcboeker/go-duckdb"

	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

// bootQueries run on every new connection. They bypass the query log, so
// they never show up in a profile.
var bootQueries = []string{
	"SET threads = 1",
}

// Open opens the database at dsn with every statement recorded in log.
func Open(dsn string, log *querylog.Log) (*sql.DB, error) {
	connector, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(querylog.NewConnector(connector, log))
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewConnector creates a DuckDB connector with extension autoloading
// enabled for file databases.
func NewConnector(dsn string) (driver.Connector, error) {
	connector, err := duckdbDriver.NewConnector(injectAutoloadConfig(dsn), func(execer driver.ExecerContext) error {
		ctx := context.Background()
		for _, query := range bootQueries {
			if _, err := execer.ExecContext(ctx, query, nil); err != nil {
				// Non-fatal: the defaults are good enough.
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create duckdb connector: %w", err)
	}
	return connector, nil
}

// injectAutoloadConfig adds autoinstall_known_extensions and
// autoload_known_extensions to the DSN query parameters if not already set.
func injectAutoloadConfig(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	path, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return dsn
	}

	if !params.Has("autoinstall_known_extensions") {
		params.Set("autoinstall_known_extensions", "true")
	}
	if !params.Has("autoload_known_extensions") {
		params.Set("autoload_known_extensions", "true")
	}

	return path + "?" + params.Encode()
}
