package dbcache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotMocked is returned when a TestDB or TestConnector method is called
// without a corresponding Func field set.
var ErrNotMocked = errors.New("dbcache: method not mocked — set the corresponding Func field")

// TestConnector is a counting connect source for unit tests. Its Connect
// method satisfies ConnectFunc and records every attempt, which makes the
// cache's single-flight and retry behavior directly assertable.
type TestConnector[T any] struct {
	// ConnectFunc produces the attempt's outcome. Nil fails with ErrNotMocked.
	ConnectFunc func(ctx context.Context) (T, error)

	// Delay is applied before ConnectFunc runs, honoring ctx cancellation.
	// Use it to hold an attempt open while concurrent callers pile up.
	Delay time.Duration

	attempts atomic.Int64
}

// Connect records the attempt and delegates to ConnectFunc.
func (c *TestConnector[T]) Connect(ctx context.Context) (T, error) {
	var zero T

	c.attempts.Add(1)

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	if c.ConnectFunc == nil {
		return zero, ErrNotMocked
	}
	return c.ConnectFunc(ctx)
}

// Attempts reports how many times Connect has been called.
func (c *TestConnector[T]) Attempts() int64 {
	return c.attempts.Load()
}

// TestDB is a mock DB implementation for unit tests.
type TestDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
	BeginTxFunc  func(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	PingFunc     func(ctx context.Context) error
	CloseFunc    func()
}

var _ DB = (*TestDB)(nil)

func (t *TestDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.ExecFunc != nil {
		return t.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, ErrNotMocked
}

func (t *TestDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if t.QueryFunc != nil {
		return t.QueryFunc(ctx, sql, args...)
	}
	return nil, ErrNotMocked
}

func (t *TestDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.QueryRowFunc != nil {
		return t.QueryRowFunc(ctx, sql, args...)
	}
	return &ErrRow{Err: ErrNotMocked}
}

func (t *TestDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if t.BeginFunc != nil {
		return t.BeginFunc(ctx)
	}
	return nil, ErrNotMocked
}

func (t *TestDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if t.BeginTxFunc != nil {
		return t.BeginTxFunc(ctx, txOptions)
	}
	return nil, ErrNotMocked
}

func (t *TestDB) Ping(ctx context.Context) error {
	if t.PingFunc != nil {
		return t.PingFunc(ctx)
	}
	return nil
}

func (t *TestDB) Close() {
	if t.CloseFunc != nil {
		t.CloseFunc()
	}
}

// ErrRow implements pgx.Row. Its Scan always returns Err.
type ErrRow struct {
	Err error
}

func (r *ErrRow) Scan(dest ...any) error {
	return r.Err
}

// NewRow returns a pgx.Row backed by the provided values.
func NewRow(values ...any) pgx.Row {
	return &valueRow{values: values}
}

type valueRow struct {
	values []any
}

func (r *valueRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("dbcache.valueRow: scan dest count %d != column count %d", len(dest), len(r.values))
	}

	for i, val := range r.values {
		if err := assignScanValue(i, dest[i], val); err != nil {
			return err
		}
	}

	return nil
}

func assignScanValue(idx int, dest any, val any) error {
	switch d := dest.(type) {
	case *string:
		v, ok := val.(string)
		if !ok {
			return fmt.Errorf("dbcache.valueRow: expected string at column %d, got %T", idx, val)
		}
		*d = v
	case *int:
		v, ok := val.(int)
		if !ok {
			return fmt.Errorf("dbcache.valueRow: expected int at column %d, got %T", idx, val)
		}
		*d = v
	case *int64:
		v, ok := val.(int64)
		if !ok {
			return fmt.Errorf("dbcache.valueRow: expected int64 at column %d, got %T", idx, val)
		}
		*d = v
	case *bool:
		v, ok := val.(bool)
		if !ok {
			return fmt.Errorf("dbcache.valueRow: expected bool at column %d, got %T", idx, val)
		}
		*d = v
	case *float64:
		v, ok := val.(float64)
		if !ok {
			return fmt.Errorf("dbcache.valueRow: expected float64 at column %d, got %T", idx, val)
		}
		*d = v
	case *any:
		*d = val
	default:
		return fmt.Errorf("dbcache.valueRow: unsupported scan target type %T at column %d", dest, idx)
	}

	return nil
}
