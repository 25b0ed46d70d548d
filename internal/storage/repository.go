// Package storage implements the bills repository on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scadenze/internal/core"
	"scadenze/internal/services"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists entries, recurring rules and occurrence
// overrides. It implements services.Repository.
type SQLiteRepository struct {
	db *sql.DB
}

var _ services.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListEntries returns all one-time entries, unfiltered by date; the
// engine applies the window itself.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.OneTimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, description, amount_cents, due_date, is_paid, paid_on
		FROM entries
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.OneTimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.OneTimeEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, category, description, amount_cents, due_date, is_paid, paid_on
		FROM entries
		WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OneTimeEntry{}, fmt.Errorf("entry %d: %w", id, services.ErrNotFound)
	}
	return e, err
}

func (r *SQLiteRepository) UpsertEntry(ctx context.Context, e core.OneTimeEntry) (int64, error) {
	paidOn := nullDate(e.PaidOn)

	if e.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO entries (type, category, description, amount_cents, due_date, is_paid, paid_on)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(e.Type), e.Category, e.Description, e.Amount.Cents,
			e.DueDate.String(), boolToInt(e.IsPaid), paidOn)
		if err != nil {
			return 0, fmt.Errorf("insert entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert entry id: %w", err)
		}
		slog.InfoContext(ctx, "Entry saved",
			"entry_id", id,
			"description", e.Description,
			"amount_cents", e.Amount.Cents,
			"due_date", e.DueDate.String())
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET type = ?, category = ?, description = ?, amount_cents = ?,
		    due_date = ?, is_paid = ?, paid_on = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(e.Type), e.Category, e.Description, e.Amount.Cents,
		e.DueDate.String(), boolToInt(e.IsPaid), paidOn, e.ID)
	if err != nil {
		return 0, fmt.Errorf("update entry: %w", err)
	}
	if err := requireRow(res, "entry", e.ID); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res, "entry", id)
}

func (r *SQLiteRepository) SetEntryPaid(ctx context.Context, id int64, paidOn core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET is_paid = 1, paid_on = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, paidOn.String(), id)
	if err != nil {
		return fmt.Errorf("set entry paid: %w", err)
	}
	return requireRow(res, "entry", id)
}

func (r *SQLiteRepository) SetEntryDueDate(ctx context.Context, id int64, due core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET due_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, due.String(), id)
	if err != nil {
		return fmt.Errorf("set entry due date: %w", err)
	}
	return requireRow(res, "entry", id)
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, description, amount_cents, frequency, day_of_month, weekday, start_anchor
		FROM recurring_rules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetRule(ctx context.Context, id int64) (core.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, category, description, amount_cents, frequency, day_of_month, weekday, start_anchor
		FROM recurring_rules
		WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRule{}, fmt.Errorf("rule %d: %w", id, services.ErrNotFound)
	}
	return rule, err
}

func (r *SQLiteRepository) UpsertRule(ctx context.Context, rule core.RecurringRule) (int64, error) {
	if rule.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO recurring_rules (type, category, description, amount_cents, frequency, day_of_month, weekday, start_anchor)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(rule.Type), rule.Category, rule.Description, rule.Amount.Cents,
			string(rule.Every), rule.DayOfMonth, rule.Weekday, rule.StartAnchor.String())
		if err != nil {
			return 0, fmt.Errorf("insert rule: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert rule id: %w", err)
		}
		slog.InfoContext(ctx, "Recurring rule saved",
			"rule_id", id,
			"description", rule.Description,
			"frequency", string(rule.Every))
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_rules
		SET type = ?, category = ?, description = ?, amount_cents = ?,
		    frequency = ?, day_of_month = ?, weekday = ?, start_anchor = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(rule.Type), rule.Category, rule.Description, rule.Amount.Cents,
		string(rule.Every), rule.DayOfMonth, rule.Weekday, rule.StartAnchor.String(), rule.ID)
	if err != nil {
		return 0, fmt.Errorf("update rule: %w", err)
	}
	if err := requireRow(res, "rule", rule.ID); err != nil {
		return 0, err
	}
	return rule.ID, nil
}

// DeleteRule removes the rule row only. Overrides keyed to it stay
// behind; the engine ignores them.
func (r *SQLiteRepository) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if err := requireRow(res, "rule", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring rule deleted, overrides orphaned", "rule_id", id)
	return nil
}

func (r *SQLiteRepository) ListOverrides(ctx context.Context) ([]core.Override, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rule_id, occurrence_date, effective_date, is_paid, paid_on, skipped
		FROM occurrence_overrides
		ORDER BY rule_id, occurrence_date`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []core.Override
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetOverride(ctx context.Context, key core.OverrideKey) (core.Override, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT rule_id, occurrence_date, effective_date, is_paid, paid_on, skipped
		FROM occurrence_overrides
		WHERE rule_id = ? AND occurrence_date = ?`, key.RuleID, key.Date)
	ov, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Override{}, fmt.Errorf("override %s: %w", key, services.ErrNotFound)
	}
	return ov, err
}

func (r *SQLiteRepository) UpsertOverride(ctx context.Context, ov core.Override) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO occurrence_overrides (rule_id, occurrence_date, effective_date, is_paid, paid_on, skipped)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (rule_id, occurrence_date) DO UPDATE SET
			effective_date = excluded.effective_date,
			is_paid = excluded.is_paid,
			paid_on = excluded.paid_on,
			skipped = excluded.skipped,
			updated_at = CURRENT_TIMESTAMP`,
		ov.RuleID, ov.OccurrenceDate.String(), nullDate(ov.EffectiveDate),
		boolToInt(ov.IsPaid), nullDate(ov.PaidOn), boolToInt(ov.Skipped))
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.OneTimeEntry, error) {
	var (
		e       core.OneTimeEntry
		typ     string
		due     string
		isPaid  int
		paidOn  sql.NullString
	)
	if err := s.Scan(&e.ID, &typ, &e.Category, &e.Description, &e.Amount.Cents, &due, &isPaid, &paidOn); err != nil {
		return core.OneTimeEntry{}, err
	}
	e.Type = core.EntryType(typ)
	e.IsPaid = isPaid != 0

	var err error
	if e.DueDate, err = core.ParseDate(due); err != nil {
		return core.OneTimeEntry{}, fmt.Errorf("entry %d due_date: %w", e.ID, err)
	}
	if e.PaidOn, err = parseNullDate(paidOn); err != nil {
		return core.OneTimeEntry{}, fmt.Errorf("entry %d paid_on: %w", e.ID, err)
	}
	return e, nil
}

func scanRule(s rowScanner) (core.RecurringRule, error) {
	var (
		rule   core.RecurringRule
		typ    string
		freq   string
		anchor string
	)
	if err := s.Scan(&rule.ID, &typ, &rule.Category, &rule.Description, &rule.Amount.Cents,
		&freq, &rule.DayOfMonth, &rule.Weekday, &anchor); err != nil {
		return core.RecurringRule{}, err
	}
	rule.Type = core.EntryType(typ)
	rule.Every = core.Frequency(freq)

	var err error
	if rule.StartAnchor, err = core.ParseDate(anchor); err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %d start_anchor: %w", rule.ID, err)
	}
	return rule, nil
}

func scanOverride(s rowScanner) (core.Override, error) {
	var (
		ov        core.Override
		occ       string
		effective sql.NullString
		isPaid    int
		paidOn    sql.NullString
		skipped   int
	)
	if err := s.Scan(&ov.RuleID, &occ, &effective, &isPaid, &paidOn, &skipped); err != nil {
		return core.Override{}, err
	}
	ov.IsPaid = isPaid != 0
	ov.Skipped = skipped != 0

	var err error
	if ov.OccurrenceDate, err = core.ParseDate(occ); err != nil {
		return core.Override{}, fmt.Errorf("override rule %d occurrence_date: %w", ov.RuleID, err)
	}
	if ov.EffectiveDate, err = parseNullDate(effective); err != nil {
		return core.Override{}, fmt.Errorf("override rule %d effective_date: %w", ov.RuleID, err)
	}
	if ov.PaidOn, err = parseNullDate(paidOn); err != nil {
		return core.Override{}, fmt.Errorf("override rule %d paid_on: %w", ov.RuleID, err)
	}
	return ov, nil
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, services.ErrNotFound)
	}
	return nil
}
