// Rule expansion: turning one recurring rule plus a date window into the
// raw occurrence dates it produces, before any overrides apply.
//
// Each frequency has its own generator strategy registered in a lookup
// map, so new cadences can be added without touching the expansion
// entry point.
package core

import "fmt"

// OccurrenceGenerator is the strategy interface for expanding one
// frequency type. Implementations return the ascending, duplicate-free
// occurrence dates within [windowStart, windowEnd], each no earlier
// than the rule's start anchor.
type OccurrenceGenerator interface {
	Generate(rule RecurringRule, windowStart, windowEnd Date) []Date
}

// MonthlyGenerator emits one occurrence per month on the rule's day of
// month, clamped to the month's last day. A rule with dom=31 therefore
// fires once per month even in February, on the 28th or 29th. That is
// the contract, not an omission.
type MonthlyGenerator struct{}

func (MonthlyGenerator) Generate(rule RecurringRule, windowStart, windowEnd Date) []Date {
	lower := MaxDate(rule.StartAnchor, windowStart)
	if lower.After(windowEnd.Time) {
		return nil
	}

	var out []Date
	year, month := lower.Year(), lower.Month()
	for {
		occ := ClampDayOfMonth(year, month, rule.DayOfMonth)
		if occ.After(windowEnd.Time) {
			break
		}
		if !occ.Before(lower.Time) {
			out = append(out, occ)
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return out
}

// WeeklyGenerator steps in 7-day increments from the first on-weekday
// date at or after max(start anchor, window start).
type WeeklyGenerator struct{}

func (WeeklyGenerator) Generate(rule RecurringRule, windowStart, windowEnd Date) []Date {
	lower := MaxDate(rule.StartAnchor, windowStart)

	var out []Date
	for occ := lower.StepToWeekday(rule.Weekday); !occ.After(windowEnd.Time); occ = occ.AddDays(7) {
		out = append(out, occ)
	}
	return out
}

// BiweeklyGenerator anchors the 14-day cadence to the first on-weekday
// occurrence at or after the rule's start anchor, never to the window
// start. Re-querying overlapping windows therefore reproduces the same
// absolute dates instead of a re-phased cadence.
type BiweeklyGenerator struct{}

func (BiweeklyGenerator) Generate(rule RecurringRule, windowStart, windowEnd Date) []Date {
	first := rule.StartAnchor.StepToWeekday(rule.Weekday)
	if windowStart.After(first.Time) {
		// Jump forward whole cadence periods to the first occurrence
		// inside the window, keeping the anchor's phase.
		gap := DaysBetween(first, windowStart)
		periods := gap / 14
		if gap%14 != 0 {
			periods++
		}
		first = first.AddDays(periods * 14)
	}

	var out []Date
	for occ := first; !occ.After(windowEnd.Time); occ = occ.AddDays(14) {
		out = append(out, occ)
	}
	return out
}

// occurrenceGenerators maps frequencies to their generator strategies.
var occurrenceGenerators = map[Frequency]OccurrenceGenerator{
	Monthly:  MonthlyGenerator{},
	Weekly:   WeeklyGenerator{},
	Biweekly: BiweeklyGenerator{},
}

// ExpandRule returns the raw occurrence dates a rule produces within
// [windowStart, windowEnd], ignoring overrides. The rule is validated
// first; a malformed rule is an error, never silently clamped. An
// inverted window or an anchor past the window end yields an empty
// result.
func ExpandRule(rule RecurringRule, windowStart, windowEnd Date) ([]Date, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	if windowStart.After(windowEnd.Time) {
		return nil, nil
	}
	if rule.StartAnchor.After(windowEnd.Time) {
		return nil, nil
	}

	gen, ok := occurrenceGenerators[rule.Every]
	if !ok {
		return nil, fmt.Errorf("rule %d: %w: %q", rule.ID, ErrInvalidFrequency, rule.Every)
	}
	return gen.Generate(rule, windowStart, windowEnd), nil
}
