package core

import "testing"

func TestResolveOverride(t *testing.T) {
	occ := NewDate(2025, 11, 5)

	tests := []struct {
		name     string
		override *Override
		want     ResolvedOccurrence
		wantOK   bool
	}{
		{
			name:     "no override keeps occurrence date unpaid",
			override: nil,
			want:     ResolvedOccurrence{EffectiveDate: occ},
			wantOK:   true,
		},
		{
			name:     "skip suppresses",
			override: &Override{RuleID: 1, OccurrenceDate: occ, Skipped: true},
			wantOK:   false,
		},
		{
			name:     "postpone moves effective date only",
			override: &Override{RuleID: 1, OccurrenceDate: occ, EffectiveDate: NewDate(2025, 11, 12)},
			want:     ResolvedOccurrence{EffectiveDate: NewDate(2025, 11, 12)},
			wantOK:   true,
		},
		{
			name: "paid without postponement",
			override: &Override{
				RuleID: 1, OccurrenceDate: occ,
				IsPaid: true, PaidOn: NewDate(2025, 11, 4),
			},
			want:   ResolvedOccurrence{EffectiveDate: occ, IsPaid: true, PaidOn: NewDate(2025, 11, 4)},
			wantOK: true,
		},
		{
			name: "paid after postponement keeps postponed date",
			override: &Override{
				RuleID: 1, OccurrenceDate: occ,
				EffectiveDate: NewDate(2025, 11, 12),
				IsPaid:        true, PaidOn: NewDate(2025, 11, 12),
			},
			want: ResolvedOccurrence{
				EffectiveDate: NewDate(2025, 11, 12),
				IsPaid:        true, PaidOn: NewDate(2025, 11, 12),
			},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveOverride(occ, tt.override)
			if ok != tt.wantOK {
				t.Fatalf("ResolveOverride() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !got.EffectiveDate.Equal(tt.want.EffectiveDate.Time) {
				t.Errorf("effective date = %s, want %s", got.EffectiveDate, tt.want.EffectiveDate)
			}
			if got.IsPaid != tt.want.IsPaid {
				t.Errorf("is paid = %v, want %v", got.IsPaid, tt.want.IsPaid)
			}
			if got.IsPaid && !got.PaidOn.Equal(tt.want.PaidOn.Time) {
				t.Errorf("paid on = %s, want %s", got.PaidOn, tt.want.PaidOn)
			}
		})
	}
}

func TestResolveOverride_Idempotent(t *testing.T) {
	occ := NewDate(2025, 3, 31)
	ov := &Override{RuleID: 7, OccurrenceDate: occ, EffectiveDate: NewDate(2025, 4, 2)}

	first, ok1 := ResolveOverride(occ, ov)
	second, ok2 := ResolveOverride(occ, ov)
	if !ok1 || !ok2 {
		t.Fatalf("resolution suppressed unexpectedly")
	}
	if !first.EffectiveDate.Equal(second.EffectiveDate.Time) || first.IsPaid != second.IsPaid {
		t.Errorf("repeated resolution diverged: %+v vs %+v", first, second)
	}
}
