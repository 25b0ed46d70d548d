package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"scadenze/internal/core"
)

var errBadRequest = errors.New("bad request")

// maxBodySize caps JSON payloads. Bill records are tiny.
const maxBodySize = 64 * 1024

// parseWindow reads the from/to query parameters. Both are required;
// an inverted window is legal and yields an empty snapshot downstream.
func parseWindow(r *http.Request) (core.Date, core.Date, error) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	return from, to, nil
}

// parseToday reads the optional today query parameter, defaulting to
// the current UTC date. Tests and backfills pass it explicitly.
func parseToday(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("today"))
	if v == "" {
		return core.Today(), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: today: %v", errBadRequest, err)
	}
	return d, nil
}

func parseDateQuery(r *http.Request, name string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.Date{}, fmt.Errorf("%w: missing %q", errBadRequest, name)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return d, nil
}

func parseIDPath(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, v)
	}
	return id, nil
}

func parseDatePath(r *http.Request, name string) (core.Date, error) {
	d, err := core.ParseDate(r.PathValue(name))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return d, nil
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	// An empty body means "all defaults" for requests where every
	// field is optional.
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

// entryRequest is the JSON shape for creating or updating a one-time
// entry. Amount is a decimal string ("12.50" or "12,50").
type entryRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

func (req entryRequest) toEntry(id int64) (core.OneTimeEntry, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.OneTimeEntry{}, err
	}
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return core.OneTimeEntry{}, err
	}
	return core.OneTimeEntry{
		ID:          id,
		Type:        core.EntryType(strings.TrimSpace(req.Type)),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Amount:      core.Money{Cents: cents},
		DueDate:     due,
	}, nil
}

// ruleRequest is the JSON shape for creating or updating a recurring
// rule. day_of_month applies to monthly rules, weekday (Monday=1) to
// weekly and biweekly ones.
type ruleRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	DayOfMonth  int    `json:"day_of_month"`
	Weekday     int    `json:"weekday"`
	StartAnchor string `json:"start_anchor"`
}

func (req ruleRequest) toRule(id int64) (core.RecurringRule, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringRule{}, err
	}
	anchor, err := core.ParseDate(req.StartAnchor)
	if err != nil {
		return core.RecurringRule{}, err
	}
	return core.RecurringRule{
		ID:          id,
		Type:        core.EntryType(strings.TrimSpace(req.Type)),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Amount:      core.Money{Cents: cents},
		Every:       core.Frequency(strings.TrimSpace(req.Frequency)),
		DayOfMonth:  req.DayOfMonth,
		Weekday:     req.Weekday,
		StartAnchor: anchor,
	}, nil
}

// payRequest marks something paid. paid_on defaults to today.
type payRequest struct {
	PaidOn string `json:"paid_on"`
}

func (req payRequest) paidOn() (core.Date, error) {
	if strings.TrimSpace(req.PaidOn) == "" {
		return core.Today(), nil
	}
	return core.ParseDate(req.PaidOn)
}

// postponeRequest moves a due date. new_date is required.
type postponeRequest struct {
	NewDate string `json:"new_date"`
}

func (req postponeRequest) newDate() (core.Date, error) {
	if strings.TrimSpace(req.NewDate) == "" {
		return core.Date{}, fmt.Errorf("%w: missing new_date", errBadRequest)
	}
	return core.ParseDate(req.NewDate)
}
