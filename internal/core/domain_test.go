package core

import (
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2025 || d.Month() != 2 || d.Day() != 28 {
		t.Errorf("ParseDate() = %s", d)
	}
	if d.String() != "2025-02-28" {
		t.Errorf("String() = %q", d.String())
	}

	for _, bad := range []string{"", "2025-2-28", "28/02/2025", "2025-02-30", "2025-02-28T00:00:00Z"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestOneTimeEntryValidate(t *testing.T) {
	good := OneTimeEntry{
		ID: 1, Type: Expense, Category: "Casa", Description: "Bolletta luce",
		Amount: Money{Cents: 7250}, DueDate: NewDate(2025, 11, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	paid := good
	paid.IsPaid = true
	paid.PaidOn = NewDate(2025, 10, 30)
	if err := paid.Validate(); err != nil {
		t.Fatalf("expected ok for paid entry, got %v", err)
	}

	bads := []OneTimeEntry{
		{ID: 1, Type: "transfer", Category: "c", Description: "d", Amount: Money{Cents: 1}, DueDate: NewDate(2025, 1, 1)},
		{ID: 1, Type: Expense, Category: "c", Description: "d", Amount: Money{Cents: 1}},
		{ID: 1, Type: Expense, Category: "c", Description: "", Amount: Money{Cents: 1}, DueDate: NewDate(2025, 1, 1)},
		{ID: 1, Type: Expense, Category: "", Description: "d", Amount: Money{Cents: 1}, DueDate: NewDate(2025, 1, 1)},
		{ID: 1, Type: Expense, Category: "c", Description: "d", Amount: Money{Cents: -1}, DueDate: NewDate(2025, 1, 1)},
		{ID: 1, Type: Expense, Category: "c", Description: "d", Amount: Money{Cents: 1}, DueDate: NewDate(2025, 1, 1), IsPaid: true},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	base := RecurringRule{
		ID: 1, Type: Expense, Category: "Casa", Description: "Affitto",
		Amount: Money{Cents: 80000}, StartAnchor: NewDate(2024, 1, 1),
	}

	tests := []struct {
		name   string
		mutate func(*RecurringRule)
		ok     bool
	}{
		{name: "monthly valid", mutate: func(r *RecurringRule) { r.Every = Monthly; r.DayOfMonth = 31 }, ok: true},
		{name: "weekly valid", mutate: func(r *RecurringRule) { r.Every = Weekly; r.Weekday = 7 }, ok: true},
		{name: "biweekly valid", mutate: func(r *RecurringRule) { r.Every = Biweekly; r.Weekday = 1 }, ok: true},
		{name: "monthly dom zero", mutate: func(r *RecurringRule) { r.Every = Monthly }, ok: false},
		{name: "weekly dow zero", mutate: func(r *RecurringRule) { r.Every = Weekly }, ok: false},
		{name: "biweekly dow 8", mutate: func(r *RecurringRule) { r.Every = Biweekly; r.Weekday = 8 }, ok: false},
		{name: "unknown frequency", mutate: func(r *RecurringRule) { r.Every = "yearly"; r.DayOfMonth = 1 }, ok: false},
		{name: "zero anchor", mutate: func(r *RecurringRule) { r.Every = Monthly; r.DayOfMonth = 1; r.StartAnchor = Date{} }, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected ok, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestOverrideKey(t *testing.T) {
	ov := Override{RuleID: 7, OccurrenceDate: NewDate(2025, 3, 31), EffectiveDate: NewDate(2025, 4, 2)}
	key := ov.Key()
	if key.RuleID != 7 || key.Date != "2025-03-31" {
		t.Errorf("Key() = %+v", key)
	}
	// Postponement never changes the key.
	if key.String() != "7@2025-03-31" {
		t.Errorf("Key().String() = %q", key.String())
	}
}
