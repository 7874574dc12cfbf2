package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

type txState struct {
	tx       pgx.Tx
	onCommit []func()
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// The transaction travels in the context handed to fn, so repositories resolving their
// connection through Conn join it. A nested call reuses the outer transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	state := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	for _, hook := range state.onCommit {
		hook()
	}
	return nil
}

// Conn returns the transaction carried by ctx, falling back to the pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return pool
}

// OnCommit defers fn until the outermost transaction in ctx commits. Without a
// transaction fn runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	if fn == nil {
		return
	}
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.onCommit = append(state.onCommit, fn)
		return
	}
	fn()
}

// Transactor exposes WithTx to services that orchestrate several repositories.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor wraps the pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx runs fn inside a transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	return WithTx(ctx, t.pool, fn)
}
