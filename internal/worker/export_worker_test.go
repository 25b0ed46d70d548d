package worker

import (
	"context"
	"testing"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
	"scadenze/internal/services"
	"scadenze/internal/sheets/memory"
)

type stubRepo struct {
	entries   []core.OneTimeEntry
	rules     []core.RecurringRule
	overrides []core.Override
}

func (r *stubRepo) ListEntries(context.Context) ([]core.OneTimeEntry, error) { return r.entries, nil }
func (r *stubRepo) GetEntry(context.Context, int64) (core.OneTimeEntry, error) {
	return core.OneTimeEntry{}, services.ErrNotFound
}
func (r *stubRepo) UpsertEntry(context.Context, core.OneTimeEntry) (int64, error) { return 0, nil }
func (r *stubRepo) DeleteEntry(context.Context, int64) error                      { return nil }
func (r *stubRepo) SetEntryPaid(context.Context, int64, core.Date) error          { return nil }
func (r *stubRepo) SetEntryDueDate(context.Context, int64, core.Date) error       { return nil }
func (r *stubRepo) ListRules(context.Context) ([]core.RecurringRule, error)       { return r.rules, nil }
func (r *stubRepo) GetRule(context.Context, int64) (core.RecurringRule, error) {
	return core.RecurringRule{}, services.ErrNotFound
}
func (r *stubRepo) UpsertRule(context.Context, core.RecurringRule) (int64, error) { return 0, nil }
func (r *stubRepo) DeleteRule(context.Context, int64) error                       { return nil }
func (r *stubRepo) ListOverrides(context.Context) ([]core.Override, error) {
	return r.overrides, nil
}
func (r *stubRepo) GetOverride(context.Context, core.OverrideKey) (core.Override, error) {
	return core.Override{}, services.ErrNotFound
}
func (r *stubRepo) UpsertOverride(context.Context, core.Override) error { return nil }

func TestMonthWindow(t *testing.T) {
	cases := []struct {
		name      string
		ref       core.Date
		wantStart core.Date
		wantEnd   core.Date
	}{
		{"mid month", core.NewDate(2025, 11, 14), core.NewDate(2025, 11, 1), core.NewDate(2025, 11, 30)},
		{"february leap", core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)},
		{"december", core.NewDate(2025, 12, 31), core.NewDate(2025, 12, 1), core.NewDate(2025, 12, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := MonthWindow(tc.ref)
			if !start.Equal(tc.wantStart.Time) || !end.Equal(tc.wantEnd.Time) {
				t.Errorf("MonthWindow(%s) = %s..%s, want %s..%s",
					tc.ref, start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestHandleChangeExportsOccurrenceMonth(t *testing.T) {
	repo := &stubRepo{
		rules: []core.RecurringRule{{
			ID: 1, Type: core.Expense, Category: "Casa", Description: "Affitto",
			Amount: core.Money{Cents: 80000}, Every: core.Monthly, DayOfMonth: 5,
			StartAnchor: core.NewDate(2024, 1, 1),
		}},
	}
	exporter := memory.New()
	w := NewExportWorker(services.NewBillsService(repo, nil), exporter)

	msg := amqp.NewChangeMessage(amqp.ScopeOccurrence, amqp.ActionPay).WithOccurrence(1, "2025-03-05")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	exports := exporter.Exports()
	if len(exports) != 1 {
		t.Fatalf("exports = %d, want 1", len(exports))
	}
	got := exports[0]
	if got.WinStart.String() != "2025-03-01" || got.WinEnd.String() != "2025-03-31" {
		t.Errorf("export window = %s..%s, want occurrence month", got.WinStart, got.WinEnd)
	}
	if len(got.Snapshot.Rows) != 1 {
		t.Fatalf("rows = %d, want the March occurrence", len(got.Snapshot.Rows))
	}
	if got.Snapshot.Rows[0].DueDate.String() != "2025-03-05" {
		t.Errorf("row due date = %s", got.Snapshot.Rows[0].DueDate)
	}
}

func TestHandleChangeRejectsMalformedOccurrenceDate(t *testing.T) {
	w := NewExportWorker(services.NewBillsService(&stubRepo{}, nil), memory.New())

	msg := amqp.NewChangeMessage(amqp.ScopeOccurrence, amqp.ActionSkip).WithOccurrence(1, "05/03/2025")
	if err := w.HandleChange(context.Background(), msg); err == nil {
		t.Fatal("HandleChange() accepted a malformed occurrence date")
	}
}
