// Package duckdb opens the DuckDB databases the site runs on.
//
// Every statement goes through a query log connector, so the profiler can
// attribute database time to the hooks that caused it:
//
//	log := querylog.New()
//	db, err := duckdb.Open(dsn, log)
//
// An empty DSN opens a private in-memory database. The pool is limited to a
// single connection, which keeps an in-memory database alive between
// statements.
package duckdb
