package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	Monthly  Frequency = "monthly"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

type (
	EntryType string

	Frequency string

	// Date is a calendar date with no time-of-day or timezone.
	// Internally stored as UTC midnight so comparisons behave.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// OneTimeEntry is a single dated obligation or income.
	OneTimeEntry struct {
		ID          int64
		Type        EntryType
		Category    string
		Description string
		Amount      Money
		DueDate     Date
		IsPaid      bool
		PaidOn      Date // zero unless IsPaid
	}

	// RecurringRule describes a repeating obligation. Exactly one of
	// DayOfMonth (monthly) and Weekday (weekly/biweekly) is active,
	// depending on Every. StartAnchor is the cadence reference for
	// weekly/biweekly rules and the lower bound for monthly ones.
	RecurringRule struct {
		ID          int64
		Type        EntryType
		Category    string
		Description string
		Amount      Money
		Every       Frequency
		DayOfMonth  int // 1-31, monthly only
		Weekday     int // 1-7, Monday=1, weekly/biweekly only
		StartAnchor Date
	}

	// Override is a per-occurrence exception recorded against the
	// UNMODIFIED date the expander produced. That key never changes,
	// even when the occurrence is postponed, so repeated resolution
	// stays idempotent and the UI tracks one logical obligation.
	Override struct {
		RuleID         int64
		OccurrenceDate Date
		EffectiveDate  Date // zero unless postponed
		IsPaid         bool
		PaidOn         Date
		Skipped        bool
	}

	// OverrideKey identifies an override by rule and original date.
	OverrideKey struct {
		RuleID int64
		Date   string // ISO calendar date
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid entry type")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidRule      = errors.New("invalid recurring rule")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses the boundary representation, a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the ISO calendar-date form used at every boundary.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t EntryType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k OverrideKey) String() string {
	return fmt.Sprintf("%d@%s", k.RuleID, k.Date)
}

// Key returns the stable lookup key for this override.
func (o Override) Key() OverrideKey {
	return OverrideKey{RuleID: o.RuleID, Date: o.OccurrenceDate.String()}
}

func (e OneTimeEntry) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if err := e.DueDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.IsPaid && e.PaidOn.IsZero() {
		return errors.New("paid entry missing paid_on date")
	}
	return nil
}

// Validate rejects malformed rules instead of clamping them. A dom or
// dow outside its range is a caller data error and silently correcting
// it could hide a real configuration mistake.
func (r RecurringRule) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if err := r.StartAnchor.Validate(); err != nil {
		return fmt.Errorf("%w: start anchor: %v", ErrInvalidRule, err)
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	switch r.Every {
	case Monthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.DayOfMonth)
		}
	case Weekly, Biweekly:
		if r.Weekday < 1 || r.Weekday > 7 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, r.Weekday)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Every)
	}
	return nil
}
