// internal/repository/postgres/tx.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the database reports for conflicts that are safe to retry.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
)

// TxFunc is one unit of work executed inside an open transaction.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// RunInTx begins a transaction (read committed unless opts say otherwise),
// runs fn, commits on nil error and rolls back otherwise. The connection is
// released on every exit path.
func (db *DB) RunInTx(ctx context.Context, opts pgx.TxOptions, fn TxFunc) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithRetry runs fn via RunInTx and retries serialization/deadlock failures
// with exponential backoff and jitter. Non-retryable errors propagate
// immediately; exhausting retries returns the last error.
func (db *DB) WithRetry(ctx context.Context, fn TxFunc) error {
	return RetryOnConflict(ctx, DefaultMaxRetries, DefaultBaseDelay, rand.Float64, func(ctx context.Context) error {
		return db.RunInTx(ctx, pgx.TxOptions{}, fn)
	})
}

// RetryOnConflict retries op while it keeps failing with a retryable
// conflict. maxRetries counts retries beyond the first attempt.
func RetryOnConflict(ctx context.Context, maxRetries int, baseDelay time.Duration, rnd func() float64, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == maxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BackoffDelay(attempt, baseDelay, rnd)):
		}
	}
	return lastErr
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// BackoffDelay computes base * 2^attempt scaled by jitter in [0.5, 1.0).
// The random source is a parameter so tests can pin it.
func BackoffDelay(attempt int, base time.Duration, rnd func() float64) time.Duration {
	jitter := 0.5 + 0.5*rnd()
	return time.Duration(float64(base) * float64(int64(1)<<attempt) * jitter)
}

// ---- savepoints ----

// Savepoint marks a partial-rollback point inside an open transaction.
func Savepoint(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "SAVEPOINT "+name)
	return err
}

// RollbackToSavepoint abandons work done since the savepoint without
// aborting the surrounding transaction.
func RollbackToSavepoint(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

// ReleaseSavepoint discards the savepoint, keeping its effects.
func ReleaseSavepoint(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+name)
	return err
}
