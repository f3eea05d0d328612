package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cashflow/internal/records"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Snapshot implements records.SnapshotReader. All reads share one transaction, so
// they see the database as of the first query.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (records.Snapshot, error) {
	var snap records.Snapshot

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return snap, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if snap.Settings, err = getSettings(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Obligations, err = listObligations(ctx, tx); err != nil {
		return snap, err
	}
	if snap.CreditAccounts, err = listCreditAccounts(ctx, tx); err != nil {
		return snap, err
	}
	if snap.IncomeRules, err = listIncomeRules(ctx, tx); err != nil {
		return snap, err
	}
	if snap.PastDue, err = listPastDue(ctx, tx); err != nil {
		return snap, err
	}
	return snap, nil
}
