package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/records"
)

const obligationColumns = `id, name, category, amount_cents, frequency, due_day, due_date, autopay, status, notes, last_paid_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (core.Obligation, error) {
	var (
		o                 core.Obligation
		freq, status      string
		dueDay            sql.NullInt64
		dueDate, lastPaid sql.NullString
		autopay           int
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Category, &o.Amount.Cents, &freq, &dueDay, &dueDate, &autopay, &status, &o.Notes, &lastPaid); err != nil {
		return o, err
	}
	o.Frequency = core.Frequency(freq)
	o.Status = core.ObligationStatus(status)
	o.DueDay = int(dueDay.Int64)
	o.Autopay = autopay != 0
	var err error
	if o.DueDate, err = scanDate(dueDate); err != nil {
		return o, fmt.Errorf("obligation %d due date: %w", o.ID, err)
	}
	if o.LastPaidDate, err = scanDate(lastPaid); err != nil {
		return o, fmt.Errorf("obligation %d last paid date: %w", o.ID, err)
	}
	return o, nil
}

// ListObligations implements records.ObligationReader
func (r *SQLiteRepository) ListObligations(ctx context.Context) ([]core.Obligation, error) {
	return listObligations(ctx, r.db)
}

func listObligations(ctx context.Context, q querier) ([]core.Obligation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+obligationColumns+` FROM obligations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []core.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getObligation(ctx context.Context, id int64) (core.Obligation, error) {
	o, err := scanObligation(r.db.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return o, fmt.Errorf("obligation %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return o, fmt.Errorf("get obligation %d: %w", id, err)
	}
	return o, nil
}

func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.Status == "" {
		o.Status = core.StatusPending
	}
	if err := o.Validate(); err != nil {
		return core.Obligation{}, records.Invalid(err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO obligations (name, category, amount_cents, frequency, due_day, due_date, autopay, status, notes, last_paid_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.Category, o.Amount.Cents, string(o.Frequency), nullInt(o.DueDay), nullDate(o.DueDate),
		boolInt(o.Autopay), string(o.Status), o.Notes, nullDate(o.LastPaidDate))
	if err != nil {
		return core.Obligation{}, fmt.Errorf("create obligation: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return core.Obligation{}, fmt.Errorf("create obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved to SQLite",
		"id", o.ID,
		"name", o.Name,
		"amount_cents", o.Amount.Cents,
		"frequency", o.Frequency)
	return o, nil
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, id int64, patch core.ObligationPatch) (core.Obligation, error) {
	current, err := r.getObligation(ctx, id)
	if err != nil {
		return core.Obligation{}, err
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.Obligation{}, records.Invalid(err)
	}
	if err := r.saveObligation(ctx, updated); err != nil {
		return core.Obligation{}, err
	}
	return updated, nil
}

func (r *SQLiteRepository) saveObligation(ctx context.Context, o core.Obligation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations SET
			name = ?, category = ?, amount_cents = ?, frequency = ?, due_day = ?, due_date = ?,
			autopay = ?, status = ?, notes = ?, last_paid_date = ?
		WHERE id = ?`,
		o.Name, o.Category, o.Amount.Cents, string(o.Frequency), nullInt(o.DueDay), nullDate(o.DueDate),
		boolInt(o.Autopay), string(o.Status), o.Notes, nullDate(o.LastPaidDate), o.ID)
	if err != nil {
		return fmt.Errorf("update obligation %d: %w", o.ID, err)
	}
	return checkAffected(res, "obligation", o.ID)
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation %d: %w", id, err)
	}
	return checkAffected(res, "obligation", id)
}

// MarkPeriodPaid resolves open obligations against the period the same way a
// projection does and marks the matches paid in one transaction.
func (r *SQLiteRepository) MarkPeriodPaid(ctx context.Context, start, end, paidOn core.Date) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mark paid: %w", err)
	}
	defer tx.Rollback()

	obligations, err := listObligations(ctx, tx)
	if err != nil {
		return 0, err
	}
	due, err := projection.Resolve(start, end, obligations, nil)
	if err != nil {
		return 0, records.Invalid(err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	count := 0
	for _, d := range due {
		res, err := tx.ExecContext(ctx,
			`UPDATE obligations SET status = ?, last_paid_date = ? WHERE id = ? AND status IN (?, ?)`,
			string(core.StatusPaid), paidOn.String(), d.SourceID, string(core.StatusPending), string(core.StatusOverdue))
		if err != nil {
			return 0, fmt.Errorf("mark obligation %d paid: %w", d.SourceID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mark obligation %d paid: %w", d.SourceID, err)
		}
		count += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mark paid: %w", err)
	}

	slog.InfoContext(ctx, "Obligations marked paid",
		"start", start.String(),
		"end", end.String(),
		"count", count)
	return count, nil
}
