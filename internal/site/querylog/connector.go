package querylog

import (
	"context"
	"database/sql/driver"
	"runtime"
	"strings"
	"time"
)

// NewConnector wraps base so every statement executed through the returned
// connector is timed and appended to log, with its arguments interpolated.
func NewConnector(base driver.Connector, log *Log) driver.Connector {
	return &connector{base: base, log: log}
}

type connector struct {
	base driver.Connector
	log  *Log
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.base.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggedConn{base: conn, log: c.log}, nil
}

func (c *connector) Driver() driver.Driver { return c.base.Driver() }

// ---------------- Connection ----------------

type loggedConn struct {
	base driver.Conn
	log  *Log
}

func (c *loggedConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if pc, ok := c.base.(driver.ConnPrepareContext); ok {
		stmt, err = pc.PrepareContext(ctx, query)
	} else {
		stmt, err = c.base.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &loggedStmt{base: stmt, query: query, log: c.log}, nil
}

func (c *loggedConn) Close() error { return c.base.Close() }

//nolint:staticcheck // driver.Conn still requires Begin.
func (c *loggedConn) Begin() (driver.Tx, error) { return c.base.Begin() }

func (c *loggedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bt, ok := c.base.(driver.ConnBeginTx); ok {
		return bt.BeginTx(ctx, opts)
	}
	return c.base.Begin() //nolint:staticcheck
}

func (c *loggedConn) QueryContext(ctx context.Context, q string, args []driver.NamedValue) (driver.Rows, error) {
	qx, ok := c.base.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := qx.QueryContext(ctx, q, args)
	if err != driver.ErrSkip {
		c.log.Record(Interpolate(q, args), time.Since(start), caller())
	}
	return rows, err
}

func (c *loggedConn) ExecContext(ctx context.Context, q string, args []driver.NamedValue) (driver.Result, error) {
	ex, ok := c.base.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := ex.ExecContext(ctx, q, args)
	if err != driver.ErrSkip {
		c.log.Record(Interpolate(q, args), time.Since(start), caller())
	}
	return res, err
}

func (c *loggedConn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.base.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// ---------------- Statement ----------------

type loggedStmt struct {
	base  driver.Stmt
	query string
	log   *Log
}

func (s *loggedStmt) Close() error  { return s.base.Close() }
func (s *loggedStmt) NumInput() int { return s.base.NumInput() }

//nolint:staticcheck // driver.Stmt still requires Exec.
func (s *loggedStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	res, err := s.base.Exec(args)
	s.log.Record(Interpolate(s.query, valuesToNamed(args)), time.Since(start), caller())
	return res, err
}

//nolint:staticcheck // driver.Stmt still requires Query.
func (s *loggedStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	rows, err := s.base.Query(args)
	s.log.Record(Interpolate(s.query, valuesToNamed(args)), time.Since(start), caller())
	return rows, err
}

func (s *loggedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if ex, ok := s.base.(driver.StmtExecContext); ok {
		start := time.Now()
		res, err := ex.ExecContext(ctx, args)
		s.log.Record(Interpolate(s.query, args), time.Since(start), caller())
		return res, err
	}
	return s.Exec(namedValueToValue(args))
}

func (s *loggedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := s.base.(driver.StmtQueryContext); ok {
		start := time.Now()
		rows, err := qx.QueryContext(ctx, args)
		s.log.Record(Interpolate(s.query, args), time.Since(start), caller())
		return rows, err
	}
	return s.Query(namedValueToValue(args))
}

func (s *loggedStmt) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := s.base.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

func namedValueToValue(named []driver.NamedValue) []driver.Value {
	vs := make([]driver.Value, len(named))
	for i, nv := range named {
		vs[i] = nv.Value
	}
	return vs
}

// caller returns the first function outside database/sql and this package,
// which is the code that issued the statement.
func caller() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fn := frame.Function
		if fn != "" &&
			!strings.HasPrefix(fn, "database/sql.") &&
			!strings.Contains(fn, "/querylog.(*logged") &&
			!strings.HasPrefix(fn, "runtime.") {
			return shortFuncName(fn)
		}
		if !more {
			return ""
		}
	}
}

func shortFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		return fn[i+1:]
	}
	return fn
}
