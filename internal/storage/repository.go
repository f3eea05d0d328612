package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the SQLite-backed record store.
type SQLiteRepository struct {
	db *sql.DB
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool opens the file.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetCheckpointSettings implements records.SettingsReader
func (r *SQLiteRepository) GetCheckpointSettings(ctx context.Context) (core.CheckpointSettings, error) {
	return getSettings(ctx, r.db)
}

func getSettings(ctx context.Context, q querier) (core.CheckpointSettings, error) {
	var (
		s                   core.CheckpointSettings
		mode                string
		anchor, anchorBound sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT mode, count, custom_days, anchor_date, anchor_bound FROM checkpoint_settings WHERE id = 1`,
	).Scan(&mode, &s.Count, &s.CustomDays, &anchor, &anchorBound)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultCheckpointSettings(), nil
	}
	if err != nil {
		return s, fmt.Errorf("get checkpoint settings: %w", err)
	}
	s.Mode = core.CheckpointMode(mode)
	if s.AnchorDate, err = scanDate(anchor); err != nil {
		return s, fmt.Errorf("checkpoint settings anchor date: %w", err)
	}
	if s.AnchorBound, err = scanDate(anchorBound); err != nil {
		return s, fmt.Errorf("checkpoint settings anchor bound: %w", err)
	}
	return s, nil
}

// UpdateCheckpointSettings applies patch and stores the result if a scheduler can be
// built from it.
func (r *SQLiteRepository) UpdateCheckpointSettings(ctx context.Context, patch core.CheckpointSettingsPatch) (core.CheckpointSettings, error) {
	current, err := r.GetCheckpointSettings(ctx)
	if err != nil {
		return current, err
	}
	updated := patch.Apply(current)
	mode, err := core.ParseCheckpointMode(string(updated.Mode))
	if err != nil {
		return current, records.Invalid(err)
	}
	updated.Mode = mode
	if _, err := projection.NewScheduler(updated); err != nil {
		return current, records.Invalid(err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkpoint_settings (id, mode, count, custom_days, anchor_date, anchor_bound)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			count = excluded.count,
			custom_days = excluded.custom_days,
			anchor_date = excluded.anchor_date,
			anchor_bound = excluded.anchor_bound`,
		string(updated.Mode), updated.Count, updated.CustomDays, nullDate(updated.AnchorDate), nullDate(updated.AnchorBound))
	if err != nil {
		return current, fmt.Errorf("update checkpoint settings: %w", err)
	}

	slog.InfoContext(ctx, "Checkpoint settings updated", "mode", updated.Mode, "count", updated.Count)
	return updated, nil
}

// nullDate stores the zero date as NULL.
func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// checkAffected turns an update or delete that touched no row into records.ErrNotFound.
func checkAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, records.ErrNotFound)
	}
	return nil
}
