package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/core"
	"cashflow/internal/records"
)

const creditColumns = `id, name, account_type, balance_cents, credit_limit_cents, minimum_payment_cents, apr, cycle_close_day, payment_due_day`

func scanCreditAccount(row rowScanner) (core.CreditAccount, error) {
	var (
		a   core.CreditAccount
		typ string
	)
	err := row.Scan(&a.ID, &a.Name, &typ, &a.Balance.Cents, &a.CreditLimit.Cents, &a.MinimumPayment.Cents,
		&a.APR, &a.CycleCloseDay, &a.PaymentDueDay)
	a.Type = core.AccountType(typ)
	return a, err
}

// ListCreditAccounts implements records.CreditAccountReader
func (r *SQLiteRepository) ListCreditAccounts(ctx context.Context) ([]core.CreditAccount, error) {
	return listCreditAccounts(ctx, r.db)
}

func listCreditAccounts(ctx context.Context, q querier) ([]core.CreditAccount, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+creditColumns+` FROM credit_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list credit accounts: %w", err)
	}
	var accounts []core.CreditAccount
	index := map[int64]int{}
	for rows.Next() {
		a, err := scanCreditAccount(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan credit account: %w", err)
		}
		index[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credit accounts: %w", err)
	}

	overrides, err := q.QueryContext(ctx,
		`SELECT credit_account_id, year, month, amount_cents FROM credit_payment_overrides ORDER BY credit_account_id, year, month`)
	if err != nil {
		return nil, fmt.Errorf("list payment overrides: %w", err)
	}
	defer overrides.Close()
	for overrides.Next() {
		var o core.PaymentOverride
		if err := overrides.Scan(&o.CreditAccountID, &o.Year, &o.Month, &o.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan payment override: %w", err)
		}
		if i, ok := index[o.CreditAccountID]; ok {
			accounts[i].Overrides = append(accounts[i].Overrides, o)
		}
	}
	return accounts, overrides.Err()
}

func (r *SQLiteRepository) CreateCreditAccount(ctx context.Context, a core.CreditAccount) (core.CreditAccount, error) {
	if err := a.Validate(); err != nil {
		return core.CreditAccount{}, records.Invalid(err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_accounts (name, account_type, balance_cents, credit_limit_cents, minimum_payment_cents, apr, cycle_close_day, payment_due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), a.Balance.Cents, a.CreditLimit.Cents, a.MinimumPayment.Cents, a.APR, a.CycleCloseDay, a.PaymentDueDay)
	if err != nil {
		return core.CreditAccount{}, fmt.Errorf("create credit account: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return core.CreditAccount{}, fmt.Errorf("create credit account: %w", err)
	}
	overrides := a.Overrides
	a.Overrides = nil
	for _, o := range overrides {
		o.CreditAccountID = a.ID
		if err := r.SetPaymentOverride(ctx, o); err != nil {
			return core.CreditAccount{}, err
		}
		a.Overrides = append(a.Overrides, o)
	}

	slog.InfoContext(ctx, "Credit account saved to SQLite", "id", a.ID, "name", a.Name)
	return a, nil
}

func (r *SQLiteRepository) UpdateCreditAccount(ctx context.Context, id int64, patch core.CreditAccountPatch) (core.CreditAccount, error) {
	current, err := scanCreditAccount(r.db.QueryRowContext(ctx, `SELECT `+creditColumns+` FROM credit_accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditAccount{}, fmt.Errorf("credit account %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return core.CreditAccount{}, fmt.Errorf("get credit account %d: %w", id, err)
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.CreditAccount{}, records.Invalid(err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE credit_accounts SET
			name = ?, account_type = ?, balance_cents = ?, credit_limit_cents = ?, minimum_payment_cents = ?,
			apr = ?, cycle_close_day = ?, payment_due_day = ?
		WHERE id = ?`,
		updated.Name, string(updated.Type), updated.Balance.Cents, updated.CreditLimit.Cents, updated.MinimumPayment.Cents,
		updated.APR, updated.CycleCloseDay, updated.PaymentDueDay, id)
	if err != nil {
		return core.CreditAccount{}, fmt.Errorf("update credit account %d: %w", id, err)
	}
	if err := checkAffected(res, "credit account", id); err != nil {
		return core.CreditAccount{}, err
	}
	return updated, nil
}

// SetPaymentOverride inserts or replaces the override for the account and month.
func (r *SQLiteRepository) SetPaymentOverride(ctx context.Context, o core.PaymentOverride) error {
	if err := o.Validate(); err != nil {
		return records.Invalid(err)
	}
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credit_accounts WHERE id = ?`, o.CreditAccountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check credit account %d: %w", o.CreditAccountID, err)
	}
	if exists == 0 {
		return fmt.Errorf("credit account %d: %w", o.CreditAccountID, records.ErrNotFound)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO credit_payment_overrides (credit_account_id, year, month, amount_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(credit_account_id, year, month) DO UPDATE SET amount_cents = excluded.amount_cents`,
		o.CreditAccountID, o.Year, o.Month, o.Amount.Cents)
	if err != nil {
		return fmt.Errorf("set payment override: %w", err)
	}
	return nil
}
