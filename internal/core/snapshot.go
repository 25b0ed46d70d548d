// Snapshot assembly: the engine's only public entry point. Merges
// one-time entries with expanded, override-resolved recurring
// occurrences for a window and returns the sorted unified row set.
package core

import (
	"fmt"
	"sort"
)

type (
	// RowSource is the tagged union discriminating how a row came to
	// exist. Each variant carries only the fields that can apply to it,
	// so a one-time row can never hold a rule id.
	RowSource interface {
		// OccurrenceID is a stable identifier for the logical
		// obligation. For recurring rows it is built from the rule id
		// and the UNMODIFIED occurrence date, so it survives
		// postponement.
		OccurrenceID() string
		isRowSource()
	}

	// OneTimeSource marks a row materialized from a OneTimeEntry.
	OneTimeSource struct {
		EntryID int64
	}

	// RecurringSource marks a row materialized from a RecurringRule
	// occurrence. OccurrenceDate is the raw date the expander produced.
	RecurringSource struct {
		RuleID         int64
		OccurrenceDate Date
	}

	// Row is one materialized obligation in a snapshot. DueDate is the
	// originally scheduled date; EffectiveDate is the post-override
	// date and drives filtering, sorting and the overdue flag.
	Row struct {
		Source        RowSource
		Type          EntryType
		Category      string
		Description   string
		Amount        Money
		DueDate       Date
		EffectiveDate Date
		IsPaid        bool
		PaidOn        Date
		Overdue       bool
		DueToday      bool
	}

	// SnapshotInput carries the caller-loaded collections, pre-filtered
	// by tenant but never by date.
	SnapshotInput struct {
		Entries   []OneTimeEntry
		Rules     []RecurringRule
		Overrides []Override
	}

	// Snapshot is the complete, merged, sorted row set for one window.
	Snapshot struct {
		Rows []Row
	}
)

func (s OneTimeSource) OccurrenceID() string {
	return fmt.Sprintf("entry-%d", s.EntryID)
}

func (s RecurringSource) OccurrenceID() string {
	return fmt.Sprintf("rule-%d@%s", s.RuleID, s.OccurrenceDate)
}

func (OneTimeSource) isRowSource()   {}
func (RecurringSource) isRowSource() {}

// ComputeSnapshot materializes the de-duplicated set of obligations
// falling in [windowStart, windowEnd], each tagged with its effective
// date and payment state. A postponed occurrence belongs to the window
// containing its effective date, under its original identity, whether
// that moved it out of the requested window or pulled it in.
//
// The computation is pure: no I/O, no mutation of the inputs, no
// internal state across calls. An inverted window is a valid if useless
// query and yields an empty snapshot. A malformed rule is rejected with
// an error. Overrides referencing unknown rules are inert.
//
// Overdue and DueToday are derived from today on every call and never
// stored.
func ComputeSnapshot(in SnapshotInput, windowStart, windowEnd, today Date) (Snapshot, error) {
	if windowStart.After(windowEnd.Time) {
		return Snapshot{Rows: []Row{}}, nil
	}

	rows := make([]Row, 0, len(in.Entries))

	for _, e := range in.Entries {
		if e.DueDate.Before(windowStart.Time) || e.DueDate.After(windowEnd.Time) {
			continue
		}
		rows = append(rows, Row{
			Source:        OneTimeSource{EntryID: e.ID},
			Type:          e.Type,
			Category:      e.Category,
			Description:   e.Description,
			Amount:        e.Amount,
			DueDate:       e.DueDate,
			EffectiveDate: e.DueDate,
			IsPaid:        e.IsPaid,
			PaidOn:        e.PaidOn,
		})
	}

	overrides := indexOverrides(in.Overrides)

	for _, rule := range in.Rules {
		occurrences, err := ExpandRule(rule, windowStart, windowEnd)
		if err != nil {
			return Snapshot{}, fmt.Errorf("expand: %w", err)
		}

		for _, occ := range occurrences {
			ov := overrides[OverrideKey{RuleID: rule.ID, Date: occ.String()}]
			resolved, ok := ResolveOverride(occ, ov)
			if !ok {
				continue
			}
			// A postponement can push an occurrence out of the window;
			// those are excluded here. The opposite direction, an
			// occurrence pulled in from outside, is handled below from
			// the override side because the expander never produces
			// those raw dates for this window.
			if resolved.EffectiveDate.Before(windowStart.Time) || resolved.EffectiveDate.After(windowEnd.Time) {
				continue
			}
			rows = append(rows, Row{
				Source:        RecurringSource{RuleID: rule.ID, OccurrenceDate: occ},
				Type:          rule.Type,
				Category:      rule.Category,
				Description:   rule.Description,
				Amount:        rule.Amount,
				DueDate:       occ,
				EffectiveDate: resolved.EffectiveDate,
				IsPaid:        resolved.IsPaid,
				PaidOn:        resolved.PaidOn,
			})
		}
	}

	// Postponements whose effective date landed inside the window but
	// whose original date did not. The occurrence keeps its original
	// identity, so this cannot duplicate a row from the expander pass,
	// which only covers in-window raw dates.
	rulesByID := make(map[int64]RecurringRule, len(in.Rules))
	for _, rule := range in.Rules {
		rulesByID[rule.ID] = rule
	}
	for _, ov := range in.Overrides {
		if ov.Skipped || ov.EffectiveDate.IsZero() {
			continue
		}
		if ov.EffectiveDate.Before(windowStart.Time) || ov.EffectiveDate.After(windowEnd.Time) {
			continue
		}
		if !ov.OccurrenceDate.Before(windowStart.Time) && !ov.OccurrenceDate.After(windowEnd.Time) {
			continue
		}
		rule, known := rulesByID[ov.RuleID]
		if !known {
			continue
		}
		// Only dates the rule genuinely produces count; an override
		// pointing at an off-cadence date stays inert.
		raw, err := ExpandRule(rule, ov.OccurrenceDate, ov.OccurrenceDate)
		if err != nil {
			return Snapshot{}, fmt.Errorf("expand: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		resolved, ok := ResolveOverride(ov.OccurrenceDate, &ov)
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Source:        RecurringSource{RuleID: rule.ID, OccurrenceDate: ov.OccurrenceDate},
			Type:          rule.Type,
			Category:      rule.Category,
			Description:   rule.Description,
			Amount:        rule.Amount,
			DueDate:       ov.OccurrenceDate,
			EffectiveDate: resolved.EffectiveDate,
			IsPaid:        resolved.IsPaid,
			PaidOn:        resolved.PaidOn,
		})
	}

	for i := range rows {
		rows[i].Overdue = rows[i].Type == Expense && !rows[i].IsPaid && rows[i].EffectiveDate.Before(today.Time)
		rows[i].DueToday = rows[i].Type == Expense && !rows[i].IsPaid && rows[i].EffectiveDate.Equal(today.Time)
	}

	// Deterministic order: effective date, then description, then the
	// occurrence id so that identical descriptions still sort stably.
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].EffectiveDate.Equal(rows[j].EffectiveDate.Time) {
			return rows[i].EffectiveDate.Before(rows[j].EffectiveDate.Time)
		}
		if rows[i].Description != rows[j].Description {
			return rows[i].Description < rows[j].Description
		}
		return rows[i].Source.OccurrenceID() < rows[j].Source.OccurrenceID()
	})

	return Snapshot{Rows: rows}, nil
}

// indexOverrides builds the sparse exception lookup keyed by
// (rule id, original occurrence date). Entries for deleted rules stay
// in the map and are simply never looked up.
func indexOverrides(overrides []Override) map[OverrideKey]*Override {
	idx := make(map[OverrideKey]*Override, len(overrides))
	for i := range overrides {
		ov := overrides[i]
		idx[ov.Key()] = &ov
	}
	return idx
}
