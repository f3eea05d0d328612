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

const incomeColumns = `id, source, amount_cents, frequency, start_date, end_date, day_of_month, active, notes`

func scanIncomeRule(row rowScanner) (core.RecurringIncomeRule, error) {
	var (
		rule        core.RecurringIncomeRule
		freq, start string
		end         sql.NullString
		day         sql.NullInt64
		active      int
	)
	if err := row.Scan(&rule.ID, &rule.Source, &rule.Amount.Cents, &freq, &start, &end, &day, &active, &rule.Notes); err != nil {
		return rule, err
	}
	rule.Frequency = core.IncomeFrequency(freq)
	rule.DayOfMonth = int(day.Int64)
	rule.Active = active != 0
	var err error
	if rule.StartDate, err = core.ParseDate(start); err != nil {
		return rule, fmt.Errorf("income rule %d start date: %w", rule.ID, err)
	}
	if rule.EndDate, err = scanDate(end); err != nil {
		return rule, fmt.Errorf("income rule %d end date: %w", rule.ID, err)
	}
	return rule, nil
}

// ListRecurringIncomeRules implements records.IncomeRuleReader
func (r *SQLiteRepository) ListRecurringIncomeRules(ctx context.Context) ([]core.RecurringIncomeRule, error) {
	return listIncomeRules(ctx, r.db)
}

func listIncomeRules(ctx context.Context, q querier) ([]core.RecurringIncomeRule, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+incomeColumns+` FROM recurring_income WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list income rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringIncomeRule
	for rows.Next() {
		rule, err := scanIncomeRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurringIncomeRule(ctx context.Context, rule core.RecurringIncomeRule) (core.RecurringIncomeRule, error) {
	if err := rule.Validate(); err != nil {
		return core.RecurringIncomeRule{}, records.Invalid(err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_income (source, amount_cents, frequency, start_date, end_date, day_of_month, active, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Source, rule.Amount.Cents, string(rule.Frequency), rule.StartDate.String(), nullDate(rule.EndDate),
		nullInt(rule.DayOfMonth), boolInt(rule.Active), rule.Notes)
	if err != nil {
		return core.RecurringIncomeRule{}, fmt.Errorf("create income rule: %w", err)
	}
	if rule.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringIncomeRule{}, fmt.Errorf("create income rule: %w", err)
	}

	slog.InfoContext(ctx, "Income rule saved to SQLite",
		"id", rule.ID,
		"source", rule.Source,
		"frequency", rule.Frequency)
	return rule, nil
}

func (r *SQLiteRepository) UpdateRecurringIncomeRule(ctx context.Context, id int64, patch core.RecurringIncomePatch) (core.RecurringIncomeRule, error) {
	current, err := scanIncomeRule(r.db.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM recurring_income WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringIncomeRule{}, fmt.Errorf("income rule %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return core.RecurringIncomeRule{}, fmt.Errorf("get income rule %d: %w", id, err)
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.RecurringIncomeRule{}, records.Invalid(err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_income SET
			source = ?, amount_cents = ?, frequency = ?, start_date = ?, end_date = ?, day_of_month = ?, active = ?, notes = ?
		WHERE id = ?`,
		updated.Source, updated.Amount.Cents, string(updated.Frequency), updated.StartDate.String(), nullDate(updated.EndDate),
		nullInt(updated.DayOfMonth), boolInt(updated.Active), updated.Notes, id)
	if err != nil {
		return core.RecurringIncomeRule{}, fmt.Errorf("update income rule %d: %w", id, err)
	}
	if err := checkAffected(res, "income rule", id); err != nil {
		return core.RecurringIncomeRule{}, err
	}
	return updated, nil
}

// DeactivateRecurringIncomeRule keeps the row for history and hides it from projections.
func (r *SQLiteRepository) DeactivateRecurringIncomeRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE recurring_income SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate income rule %d: %w", id, err)
	}
	return checkAffected(res, "income rule", id)
}
