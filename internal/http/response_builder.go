package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

// rowResponse is the JSON shape of one snapshot row. occurrence_id is
// the stable identity a client keys on; for recurring rows it is built
// from the rule and the original date, so it survives postponement.
type rowResponse struct {
	OccurrenceID   string `json:"occurrence_id"`
	EntryID        int64  `json:"entry_id,omitempty"`
	RuleID         int64  `json:"rule_id,omitempty"`
	OccurrenceDate string `json:"occurrence_date,omitempty"`
	Type           string `json:"type"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	AmountCents    int64  `json:"amount_cents"`
	Amount         string `json:"amount"`
	DueDate        string `json:"due_date"`
	EffectiveDate  string `json:"effective_date"`
	IsPaid         bool   `json:"is_paid"`
	PaidOn         string `json:"paid_on,omitempty"`
	Overdue        bool   `json:"overdue"`
	DueToday       bool   `json:"due_today"`
}

type snapshotResponse struct {
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Today       string        `json:"today"`
	Rows        []rowResponse `json:"rows"`
}

type entryResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	IsPaid      bool   `json:"is_paid"`
	PaidOn      string `json:"paid_on,omitempty"`
}

type ruleResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	DayOfMonth  int    `json:"day_of_month,omitempty"`
	Weekday     int    `json:"weekday,omitempty"`
	StartAnchor string `json:"start_anchor"`
}

func buildEntryResponse(e core.OneTimeEntry) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		Type:        string(e.Type),
		Category:    e.Category,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      formatEuros(e.Amount.Cents),
		DueDate:     e.DueDate.String(),
		IsPaid:      e.IsPaid,
	}
	if e.IsPaid {
		out.PaidOn = e.PaidOn.String()
	}
	return out
}

func buildRuleResponse(r core.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:          r.ID,
		Type:        string(r.Type),
		Category:    r.Category,
		Description: r.Description,
		AmountCents: r.Amount.Cents,
		Amount:      formatEuros(r.Amount.Cents),
		Frequency:   string(r.Every),
		DayOfMonth:  r.DayOfMonth,
		Weekday:     r.Weekday,
		StartAnchor: r.StartAnchor.String(),
	}
}

type idResponse struct {
	ID int64 `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func buildSnapshotResponse(winStart, winEnd, today core.Date, snap core.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		WindowStart: winStart.String(),
		WindowEnd:   winEnd.String(),
		Today:       today.String(),
		Rows:        make([]rowResponse, 0, len(snap.Rows)),
	}
	for _, row := range snap.Rows {
		resp.Rows = append(resp.Rows, buildRowResponse(row))
	}
	return resp
}

func buildRowResponse(row core.Row) rowResponse {
	out := rowResponse{
		OccurrenceID:  row.Source.OccurrenceID(),
		Type:          string(row.Type),
		Category:      row.Category,
		Description:   row.Description,
		AmountCents:   row.Amount.Cents,
		Amount:        formatEuros(row.Amount.Cents),
		DueDate:       row.DueDate.String(),
		EffectiveDate: row.EffectiveDate.String(),
		IsPaid:        row.IsPaid,
		Overdue:       row.Overdue,
		DueToday:      row.DueToday,
	}
	if row.IsPaid {
		out.PaidOn = row.PaidOn.String()
	}
	switch src := row.Source.(type) {
	case core.OneTimeSource:
		out.EntryID = src.EntryID
	case core.RecurringSource:
		out.RuleID = src.RuleID
		out.OccurrenceDate = src.OccurrenceDate.String()
	}
	return out
}

func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses: invalid input 400,
// domain validation 422, missing records 404, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidRule) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, core.ErrInvalidFrequency) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrEmptyCategory)
}
