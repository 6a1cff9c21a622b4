// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zyric/identity/internal/auth"
)

// DefaultCommitTimeout bounds commit and rollback.
const DefaultCommitTimeout = 5 * time.Second

// Transactor implements auth.Transactor on a pgx pool at read committed.
// It stores the active pgx.Tx in the context so repository calls made with
// that context join the transaction. A nested call joins the outer one.
type Transactor struct {
	pool          poolIface
	commitTimeout time.Duration
}

// NewTransactor creates a Transactor. pool is usually a *pgxpool.Pool.
func NewTransactor(pool poolIface) *Transactor {
	return &Transactor{pool: pool, commitTimeout: DefaultCommitTimeout}
}

// InTransaction runs fn in a transaction. Commit and rollback run detached
// from ctx cancellation, bounded by the commit timeout, so work fn finished
// is not thrown away because the caller left.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return dbError(err, "TX_BEGIN_FAILED", "operation", "begin transaction")
	}

	endCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.WithoutCancel(ctx), t.commitTimeout)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		rbCtx, cancel := endCtx()
		defer cancel()
		_ = tx.Rollback(rbCtx) //nolint:errcheck // fn error takes precedence
		return err
	}

	commitCtx, cancel := endCtx()
	defer cancel()
	if err := tx.Commit(commitCtx); err != nil {
		return dbError(err, "TX_COMMIT_FAILED", "operation", "commit transaction")
	}
	return nil
}

// Compile-time interface check.
var _ auth.Transactor = (*Transactor)(nil)
