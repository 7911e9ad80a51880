package site

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/coral-mesh/hookprof/internal/errors"
)

// Eval runs a script against the bootstrapped site. Statements are separated
// by semicolons outside quoted literals and identifiers. Most are SQL; a statement starting with "@" is a directive:
//
//	@do <hook>        fire an action
//	@filter <hook> v  apply a filter to v
//	@get <url>        fetch a URL through the site's HTTP client
//	@option <name>    read an option through the object cache
func (s *Site) Eval(ctx context.Context, script string) error {
	if !s.loaded || s.db == nil {
		return ErrNotBootstrapped
	}
	for _, stmt := range splitStatements(script) {
		var err error
		if strings.HasPrefix(stmt, "@") {
			err = s.directive(ctx, stmt)
		} else {
			err = s.sql(ctx, stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// splitStatements cuts script at semicolons that are not inside '...' or
// "...". A doubled quote closes and reopens the literal.
func splitStatements(script string) []string {
	var (
		out   []string
		quote rune
		start int
	)
	flush := func(end int) {
		if stmt := strings.TrimSpace(script[start:end]); stmt != "" {
			out = append(out, stmt)
		}
	}
	for i, r := range script {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(script))
	return out
}

func (s *Site) directive(ctx context.Context, stmt string) error {
	name, arg, _ := strings.Cut(stmt[1:], " ")
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return fmt.Errorf("directive @%s needs an argument", name)
	}
	switch name {
	case "do":
		s.hooks.DoAction(arg, ctx)
	case "filter":
		hook, value, _ := strings.Cut(arg, " ")
		s.hooks.ApplyFilters(hook, strings.TrimSpace(value), ctx)
	case "get":
		status, err := s.Fetch(ctx, arg)
		if err != nil {
			return fmt.Errorf("@get %s: %w", arg, err)
		}
		s.logger.Debug().Int("status", status).Str("url", arg).Msg("Fetched")
	case "option":
		if _, err := s.Option(ctx, arg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown directive @%s", name)
	}
	return nil
}

func (s *Site) sql(ctx context.Context, stmt string) error {
	verb := strings.ToUpper(strings.Fields(stmt)[0])
	switch verb {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "PRAGMA", "EXPLAIN", "FROM":
		rows, err := s.db.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		defer errs.DeferClose(s.logger, rows, "failed to close eval rows")
		n := 0
		for rows.Next() {
			n++
		}
		s.logger.Debug().Int("rows", n).Msg("Evaluated query")
		return rows.Err()
	default:
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
		return nil
	}
}
