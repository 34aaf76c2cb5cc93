package db

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "pgx_tx"

// Queryable is the subset of pgx operations shared by *pgxpool.Pool and
// pgx.Tx. Repositories run against a Queryable so the same query code works
// inside and outside a transaction.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx runs fn inside a transaction. The transaction is stored in the
// context passed to fn, so repository calls made through FromContext
// participate in it. The transaction commits when fn returns nil and rolls
// back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxFromContext returns the transaction stored by WithTx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// FromContext returns the active transaction when one is in flight, falling
// back to the pool.
func FromContext(ctx context.Context, pool *pgxpool.Pool) Queryable {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return pool
}

// XactLock takes a transaction-scoped advisory lock derived from key. The
// lock is released automatically when the enclosing transaction ends.
// Callers serialize on the same key string to guard read-then-write
// sequences against concurrent inserts.
func XactLock(ctx context.Context, q Queryable, key string) error {
	h := fnv.New64a()
	h.Write([]byte(key))
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(h.Sum64())); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}
