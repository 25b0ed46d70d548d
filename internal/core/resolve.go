// Override resolution: applying the postpone/pay/skip exception, if
// any, recorded for one raw occurrence.
package core

// ResolvedOccurrence is the state of one occurrence after its override
// has been applied.
type ResolvedOccurrence struct {
	EffectiveDate Date
	IsPaid        bool
	PaidOn        Date
}

// ResolveOverride applies ov to the occurrence produced on
// occurrenceDate. A nil override leaves the occurrence untouched. A
// skip suppresses it (ok=false). A postponement moves only the
// effective date; occurrenceDate stays the identity key, which is what
// keeps postpone-then-postpone and mark-paid-after-postpone from ever
// duplicating or orphaning a row.
func ResolveOverride(occurrenceDate Date, ov *Override) (ResolvedOccurrence, bool) {
	if ov == nil {
		return ResolvedOccurrence{EffectiveDate: occurrenceDate}, true
	}
	if ov.Skipped {
		return ResolvedOccurrence{}, false
	}

	effective := occurrenceDate
	if !ov.EffectiveDate.IsZero() {
		effective = ov.EffectiveDate
	}
	return ResolvedOccurrence{
		EffectiveDate: effective,
		IsPaid:        ov.IsPaid,
		PaidOn:        ov.PaidOn,
	}, true
}
