// Package dbx wraps the pooled database handle and the transactional
// execution helper every repository uses, following the teacher's
// repository/postgres.DB pattern (semaphore-bounded *sql.DB wrapper with a
// WithTx helper), generalized to §5's SERIALIZABLE-isolation + bounded-retry
// contract for the inventory ledger.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/lib/pq"              // kept for dsn-style connection strings used by tooling

	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/config"
	"github.com/wms-core/server/pkg/logger"
)

// DB is the pooled database handle shared by every repository.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// Open connects to Postgres via the pgx stdlib driver and configures the
// pool the way the teacher's NewDB does (bounded open/idle conns, bounded
// concurrent in-flight transactions via a semaphore).
func Open(cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	conn, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{DB: conn, sem: semaphore.NewWeighted(16)}, nil
}

// txTimeout is the database-transaction timeout of §5.
const txTimeout = 15 * time.Second

// WithTx runs fn inside a SERIALIZABLE transaction, acquiring a slot from
// the bounded semaphore first. It rolls back on any error returned by fn
// and never leaves partial state on cancellation, per §5.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire db semaphore: %w", err)
	}
	defer db.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// maxRetries is the §5 serialization-retry budget for ledger writes that
// can lose a SERIALIZABLE conflict to a concurrent writer on the same
// balance row.
const maxRetries = 3

// WithSerializableRetry runs fn inside WithTx, retrying with exponential
// backoff when the underlying driver reports a serialization failure
// (Postgres SQLSTATE 40001), surfacing apperr.SerializationRetry as
// apperr.Conflict once the budget is exhausted (§4.3 "Conflict" failure
// mode, §5 "first-committer-wins").
func (db *DB) WithSerializableRetry(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = db.WithTx(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
		backoff := time.Duration(1<<attempt) * 20 * time.Millisecond
		backoff += time.Duration(rand.Intn(20)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return apperr.Wrap(apperr.Conflict, "serialization_retry_exhausted",
		"too many concurrent writers on this inventory cell", lastErr)
}

func isSerializationFailure(err error) bool {
	// Postgres signals SERIALIZABLE conflicts with SQLSTATE 40001; both
	// pgx and lib/pq surface it in the driver error's textual form, so a
	// substring check keeps this independent of which error type wraps it.
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "could not serialize access")
}
