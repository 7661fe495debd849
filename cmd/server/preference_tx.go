package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"payprefs/internal/audit"
	"payprefs/internal/preference/service"
	"payprefs/internal/preference/store"
	dErrors "payprefs/pkg/domain-errors"
)

const defaultPreferenceTxTimeout = 5 * time.Second

// preferencePostgresTx runs preference writes inside a database transaction.
// Same-key writers serialize on a transaction-scoped advisory lock over the
// (user, category) key: FOR UPDATE cannot lock a row that does not exist yet,
// so without the advisory lock two concurrent first writes would both read
// "absent" and decide against stale state.
type preferencePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPreferencePostgresTx(db *sql.DB, timeout time.Duration) *preferencePostgresTx {
	return &preferencePostgresTx{db: db, timeout: timeout}
}

func (t *preferencePostgresTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, stores service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPreferenceTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	// Held until commit or rollback. Must precede the first read so the
	// second writer to a key sees the first writer's committed value.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("acquire preference lock: %w", err)
	}

	stores := service.Stores{
		Prefs: store.NewPostgresTx(tx),
		Audit: audit.NewPostgresTx(tx),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
