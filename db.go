package dbcache

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the contract consumers receive from an acquired Pool handle.
//
// All methods require context.Context so cancellation propagates to
// in-flight database operations. Prefer depending on DB rather than *Pool:
// application code stays testable (via TestDB) and decoupled from pool
// operational concerns.
//
// Note that acquiring is the cache's job, not the consumer's: a typical
// Vango application calls Cache.Acquire once per request or task and passes
// the resulting DB down. Operational methods (Stat) stay on the concrete
// Pool type; Close is included to support graceful shutdown through the
// interface.
type DB interface {
	// Exec executes a query that does not return rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Query executes a query that returns rows, typically a SELECT.
	// The caller must close the returned Rows when done (use defer rows.Close()).
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a query expected to return at most one row.
	// If no rows match, row.Scan() returns pgx.ErrNoRows.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Begin starts a transaction with default options.
	// The caller must call tx.Commit() or tx.Rollback().
	// Prefer WithTx for rollback-on-error semantics.
	Begin(ctx context.Context) (pgx.Tx, error)

	// BeginTx starts a transaction with explicit options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases all pool resources. Call once during graceful shutdown.
	Close()
}
