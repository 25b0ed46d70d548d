// Package core holds the pure domain model and the obligation engine:
// calendar arithmetic, recurring-rule expansion, override resolution and
// snapshot assembly. Nothing in here touches storage, the clock or any
// other side effect; callers load collections and pass them in.
package core

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return NewDate(year, month+1, 0).Day()
}

// ClampDayOfMonth returns the date for day-of-month dom in the given
// month, clamped to the month's last day (dom=31 in April -> April 30).
func ClampDayOfMonth(year, month, dom int) Date {
	if last := LastDayOfMonth(year, month); dom > last {
		dom = last
	}
	return NewDate(year, month, dom)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// ISOWeekday returns the weekday of d with Monday=1 .. Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.Time.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// StepToWeekday returns the smallest date >= d whose weekday is target
// (1-7, Monday=1).
func (d Date) StepToWeekday(target int) Date {
	delta := (target - d.ISOWeekday() + 7) % 7
	return d.AddDays(delta)
}

// DaysBetween returns the number of calendar days from a to b
// (negative when b is before a).
func DaysBetween(a, b Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}

// MaxDate returns the later of two dates.
func MaxDate(a, b Date) Date {
	if b.After(a.Time) {
		return b
	}
	return a
}
