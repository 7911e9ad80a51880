// Package querylog records every statement the site's database executes.
//
// The log is append-only: entries are never rewritten, so profilers read it
// by remembering an offset and summing the entries appended after it.
package querylog

import (
	"sync"
	"time"
)

// Query is one executed statement.
type Query struct {
	SQL     string        `json:"query" yaml:"query"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Caller  string        `json:"caller" yaml:"caller"`
}

// Log is the ordered list of executed statements.
type Log struct {
	mu      sync.Mutex
	enabled bool
	entries []Query
}

// New creates an empty, disabled log.
func New() *Log {
	return &Log{}
}

// SetEnabled turns recording on or off.
func (l *Log) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled reports whether statements are being recorded.
func (l *Log) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record appends a statement when recording is enabled.
func (l *Log) Record(sql string, elapsed time.Duration, caller string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	l.entries = append(l.entries, Query{SQL: sql, Elapsed: elapsed, Caller: caller})
}

// Len returns the number of recorded statements.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Slice returns a copy of entries [from, to), clamped to the log bounds.
func (l *Log) Slice(from, to int) []Query {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if from < 0 {
		from = 0
	}
	if to > len(l.entries) {
		to = len(l.entries)
	}
	if from >= to {
		return nil
	}
	return append([]Query(nil), l.entries[from:to]...)
}

// All returns a copy of every recorded statement.
func (l *Log) All() []Query {
	return l.Slice(0, l.Len())
}
