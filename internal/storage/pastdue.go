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

// ListPastDueInstances implements records.PastDueReader. Item names come from the
// owning bill or credit account.
func (r *SQLiteRepository) ListPastDueInstances(ctx context.Context) ([]core.PastDueInstance, error) {
	return listPastDue(ctx, r.db)
}

func listPastDue(ctx context.Context, q querier) ([]core.PastDueInstance, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.item_type, p.owner_id, p.period, p.amount_cents, p.created_date,
			COALESCE(CASE p.item_type WHEN 'bill' THEN o.name ELSE c.name END, '')
		FROM past_due_instances p
		LEFT JOIN obligations o ON p.item_type = 'bill' AND o.id = p.owner_id
		LEFT JOIN credit_accounts c ON p.item_type = 'credit' AND c.id = p.owner_id
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list past due instances: %w", err)
	}
	defer rows.Close()

	var out []core.PastDueInstance
	for rows.Next() {
		var (
			p       core.PastDueInstance
			kind    string
			created sql.NullString
		)
		if err := rows.Scan(&p.ID, &kind, &p.OwnerID, &p.Period, &p.Amount.Cents, &created, &p.ItemName); err != nil {
			return nil, fmt.Errorf("scan past due instance: %w", err)
		}
		p.OwnerKind = core.OwnerKind(kind)
		if p.CreatedDate, err = scanDate(created); err != nil {
			return nil, fmt.Errorf("past due instance %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddPastDueInstance(ctx context.Context, p core.PastDueInstance) (core.PastDueInstance, error) {
	if err := p.Validate(); err != nil {
		return core.PastDueInstance{}, records.Invalid(err)
	}
	table := "obligations"
	if p.OwnerKind == core.OwnerCredit {
		table = "credit_accounts"
	}
	err := r.db.QueryRowContext(ctx, `SELECT name FROM `+table+` WHERE id = ?`, p.OwnerID).Scan(&p.ItemName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PastDueInstance{}, fmt.Errorf("%s %d: %w", p.OwnerKind, p.OwnerID, records.ErrNotFound)
	}
	if err != nil {
		return core.PastDueInstance{}, fmt.Errorf("look up past due owner: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO past_due_instances (item_type, owner_id, period, amount_cents, created_date)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.OwnerKind), p.OwnerID, p.Period, p.Amount.Cents, p.CreatedDate.String())
	if err != nil {
		return core.PastDueInstance{}, fmt.Errorf("add past due instance: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.PastDueInstance{}, fmt.Errorf("add past due instance: %w", err)
	}

	slog.WarnContext(ctx, "Past due instance recorded",
		"id", p.ID,
		"item", p.ItemName,
		"period", p.Period,
		"amount_cents", p.Amount.Cents)
	return p, nil
}

func (r *SQLiteRepository) DeletePastDueInstance(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM past_due_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete past due instance %d: %w", id, err)
	}
	return checkAffected(res, "past due instance", id)
}
