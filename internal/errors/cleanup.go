// Package errors holds the cleanup helpers hookprof packages share.
package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes closer and logs a failure at warn level. It is for
// deferred closes whose error has nowhere else to go.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if err := closeOf(closer); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// CloseInto closes closer and joins a failure into *errp. Use it from a
// function with a named error result:
//
//	defer errs.CloseInto(&err, sess, "failed to close site")
func CloseInto(errp *error, closer io.Closer, msg string) {
	if err := closeOf(closer); err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("%s: %w", msg, err))
	}
}

// DeferRollback rolls back tx unless it was already committed or rolled
// back, logging any other failure.
func DeferRollback(logger zerolog.Logger, tx *sql.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn().Err(err).Msg("Transaction rollback failed")
	}
}

// Must panics with msg when err is set. Command wiring uses it, where an
// error is a programming mistake.
func Must(err error, msg string) {
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
}

func closeOf(closer io.Closer) error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}
