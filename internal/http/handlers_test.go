package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

// fakeRepo is an in-memory Repository for handler tests.
type fakeRepo struct {
	entries   map[int64]core.OneTimeEntry
	rules     map[int64]core.RecurringRule
	overrides map[core.OverrideKey]core.Override
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		entries:   make(map[int64]core.OneTimeEntry),
		rules:     make(map[int64]core.RecurringRule),
		overrides: make(map[core.OverrideKey]core.Override),
		nextID:    1,
	}
}

func (f *fakeRepo) ListEntries(ctx context.Context) ([]core.OneTimeEntry, error) {
	out := make([]core.OneTimeEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) GetEntry(ctx context.Context, id int64) (core.OneTimeEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return core.OneTimeEntry{}, fmt.Errorf("entry %d: %w", id, services.ErrNotFound)
	}
	return e, nil
}

func (f *fakeRepo) UpsertEntry(ctx context.Context, e core.OneTimeEntry) (int64, error) {
	if e.ID == 0 {
		e.ID = f.nextID
		f.nextID++
	}
	f.entries[e.ID] = e
	return e.ID, nil
}

func (f *fakeRepo) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return fmt.Errorf("entry %d: %w", id, services.ErrNotFound)
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeRepo) SetEntryPaid(ctx context.Context, id int64, paidOn core.Date) error {
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %d: %w", id, services.ErrNotFound)
	}
	e.IsPaid = true
	e.PaidOn = paidOn
	f.entries[id] = e
	return nil
}

func (f *fakeRepo) SetEntryDueDate(ctx context.Context, id int64, due core.Date) error {
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %d: %w", id, services.ErrNotFound)
	}
	e.DueDate = due
	f.entries[id] = e
	return nil
}

func (f *fakeRepo) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	out := make([]core.RecurringRule, 0, len(f.rules))
	for _, r := range f.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetRule(ctx context.Context, id int64) (core.RecurringRule, error) {
	r, ok := f.rules[id]
	if !ok {
		return core.RecurringRule{}, fmt.Errorf("rule %d: %w", id, services.ErrNotFound)
	}
	return r, nil
}

func (f *fakeRepo) UpsertRule(ctx context.Context, r core.RecurringRule) (int64, error) {
	if r.ID == 0 {
		r.ID = f.nextID
		f.nextID++
	}
	f.rules[r.ID] = r
	return r.ID, nil
}

func (f *fakeRepo) DeleteRule(ctx context.Context, id int64) error {
	if _, ok := f.rules[id]; !ok {
		return fmt.Errorf("rule %d: %w", id, services.ErrNotFound)
	}
	delete(f.rules, id)
	return nil
}

func (f *fakeRepo) ListOverrides(ctx context.Context) ([]core.Override, error) {
	out := make([]core.Override, 0, len(f.overrides))
	for _, ov := range f.overrides {
		out = append(out, ov)
	}
	return out, nil
}

func (f *fakeRepo) GetOverride(ctx context.Context, key core.OverrideKey) (core.Override, error) {
	ov, ok := f.overrides[key]
	if !ok {
		return core.Override{}, fmt.Errorf("override %s: %w", key, services.ErrNotFound)
	}
	return ov, nil
}

func (f *fakeRepo) UpsertOverride(ctx context.Context, ov core.Override) error {
	f.overrides[ov.Key()] = ov
	return nil
}

func newTestServer(repo *fakeRepo) *Server {
	return NewServer(":0", services.NewBillsService(repo, nil), 30*time.Second)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, r)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) snapshotResponse {
	t.Helper()
	var resp snapshotResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode snapshot response: %v", err)
	}
	return resp
}

func TestSnapshotEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.rules[1] = core.RecurringRule{
		ID: 1, Type: core.Expense, Category: "Casa", Description: "Affitto",
		Amount: core.Money{Cents: 80000}, Every: core.Monthly, DayOfMonth: 31,
		StartAnchor: core.NewDate(2024, 1, 1),
	}
	s := newTestServer(repo)

	w := do(t, s, "GET", "/api/snapshot?from=2025-02-01&to=2025-02-28&today=2025-02-10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeSnapshot(t, w)
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %d, want the clamped February occurrence", len(resp.Rows))
	}
	row := resp.Rows[0]
	if row.DueDate != "2025-02-28" || row.OccurrenceID != "rule-1@2025-02-28" {
		t.Errorf("row = %+v", row)
	}
	if row.Amount != "800.00" || row.AmountCents != 80000 {
		t.Errorf("amount = %s / %d", row.Amount, row.AmountCents)
	}
}

func TestSnapshotEndpointMissingWindow(t *testing.T) {
	s := newTestServer(newFakeRepo())
	w := do(t, s, "GET", "/api/snapshot?from=2025-02-01", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSnapshotEndpointInvertedWindowIsEmpty(t *testing.T) {
	s := newTestServer(newFakeRepo())
	w := do(t, s, "GET", "/api/snapshot?from=2025-03-01&to=2025-02-01&today=2025-02-10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeSnapshot(t, w)
	if len(resp.Rows) != 0 {
		t.Errorf("rows = %d, want empty snapshot", len(resp.Rows))
	}
}

func TestCreateEntryEndpoint(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	w := do(t, s, "POST", "/api/entries",
		`{"type":"expense","category":"Casa","description":"Bolletta","amount":"72.50","due_date":"2025-11-10"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp idResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry, ok := repo.entries[resp.ID]
	if !ok {
		t.Fatalf("entry %d not persisted", resp.ID)
	}
	if entry.Amount.Cents != 7250 {
		t.Errorf("cents = %d", entry.Amount.Cents)
	}
}

func TestCreateRuleEndpointRejectsMalformedRule(t *testing.T) {
	s := newTestServer(newFakeRepo())

	// monthly with day_of_month out of range must be a 422, not a clamp
	w := do(t, s, "POST", "/api/rules",
		`{"type":"expense","category":"Casa","description":"Affitto","amount":"800","frequency":"monthly","day_of_month":32,"start_anchor":"2024-01-01"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}
}

func TestMutationInvalidatesSnapshotCache(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(repo)

	target := "/api/snapshot?from=2025-11-01&to=2025-11-30&today=2025-11-10"
	if w := do(t, s, "GET", target, ""); len(decodeSnapshot(t, w).Rows) != 0 {
		t.Fatal("expected empty snapshot before mutation")
	}

	w := do(t, s, "POST", "/api/entries",
		`{"type":"expense","category":"Casa","description":"Bolletta","amount":"10","due_date":"2025-11-12"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	resp := decodeSnapshot(t, do(t, s, "GET", target, ""))
	if len(resp.Rows) != 1 {
		t.Fatalf("rows after mutation = %d, want the new entry", len(resp.Rows))
	}
}

func TestPayOccurrenceEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.rules[3] = core.RecurringRule{
		ID: 3, Type: core.Expense, Category: "Casa", Description: "Affitto",
		Amount: core.Money{Cents: 80000}, Every: core.Monthly, DayOfMonth: 5,
		StartAnchor: core.NewDate(2024, 1, 1),
	}
	s := newTestServer(repo)

	w := do(t, s, "POST", "/api/rules/3/occurrences/2025-11-05/pay", `{"paid_on":"2025-11-04"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeSnapshot(t, do(t, s, "GET",
		"/api/snapshot?from=2025-11-01&to=2025-11-30&today=2025-11-10", ""))
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %d", len(resp.Rows))
	}
	row := resp.Rows[0]
	if !row.IsPaid || row.PaidOn != "2025-11-04" || row.Overdue {
		t.Errorf("row = %+v", row)
	}
}

func TestPayOccurrenceUnknownRule(t *testing.T) {
	s := newTestServer(newFakeRepo())
	w := do(t, s, "POST", "/api/rules/99/occurrences/2025-11-05/pay", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body = %s", w.Code, w.Body.String())
	}
}

func TestPostponeOccurrenceKeepsIdentity(t *testing.T) {
	repo := newFakeRepo()
	repo.rules[1] = core.RecurringRule{
		ID: 1, Type: core.Expense, Category: "Casa", Description: "Affitto",
		Amount: core.Money{Cents: 80000}, Every: core.Monthly, DayOfMonth: 31,
		StartAnchor: core.NewDate(2024, 1, 1),
	}
	s := newTestServer(repo)

	w := do(t, s, "POST", "/api/rules/1/occurrences/2025-03-31/postpone", `{"new_date":"2025-04-02"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// The row keeps its identity under the original date while moving
	// its effective date, so the strict April window shows it and the
	// March window does not.
	resp := decodeSnapshot(t, do(t, s, "GET",
		"/api/snapshot?from=2025-04-01&to=2025-04-30&today=2025-04-01", ""))

	var found bool
	for _, row := range resp.Rows {
		if row.OccurrenceID == "rule-1@2025-03-31" {
			found = true
			if row.EffectiveDate != "2025-04-02" || row.DueDate != "2025-03-31" {
				t.Errorf("row = %+v", row)
			}
		}
	}
	if !found {
		t.Error("postponed occurrence missing from april window")
	}

	march := decodeSnapshot(t, do(t, s, "GET",
		"/api/snapshot?from=2025-03-01&to=2025-03-31&today=2025-04-01", ""))
	for _, row := range march.Rows {
		if row.OccurrenceID == "rule-1@2025-03-31" {
			t.Errorf("postponed occurrence still listed in march: %+v", row)
		}
	}
}

func TestDeleteEntryEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.entries[5] = core.OneTimeEntry{
		ID: 5, Type: core.Expense, Category: "Casa", Description: "Bolletta",
		Amount: core.Money{Cents: 100}, DueDate: core.NewDate(2025, 11, 1),
	}
	s := newTestServer(repo)

	if w := do(t, s, "DELETE", "/api/entries/5", ""); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(t, s, "DELETE", "/api/entries/5", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	repo := newFakeRepo()
	repo.entries[2] = core.OneTimeEntry{
		ID: 2, Type: core.Income, Category: "Lavoro", Description: "Stipendio",
		Amount: core.Money{Cents: 210000}, DueDate: core.NewDate(2025, 11, 27),
	}
	repo.entries[1] = core.OneTimeEntry{
		ID: 1, Type: core.Expense, Category: "Casa", Description: "Bolletta",
		Amount: core.Money{Cents: 7250}, DueDate: core.NewDate(2025, 11, 10),
	}
	repo.rules[1] = core.RecurringRule{
		ID: 1, Type: core.Expense, Category: "Casa", Description: "Affitto",
		Amount: core.Money{Cents: 80000}, Every: core.Weekly, Weekday: 5,
		StartAnchor: core.NewDate(2024, 1, 1),
	}
	s := newTestServer(repo)

	w := do(t, s, "GET", "/api/entries", "")
	if w.Code != http.StatusOK {
		t.Fatalf("entries status = %d", w.Code)
	}
	var entries []entryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 1 || entries[1].ID != 2 {
		t.Errorf("entries = %+v, want sorted by id", entries)
	}

	w = do(t, s, "GET", "/api/rules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("rules status = %d", w.Code)
	}
	var rules []ruleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rules); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Frequency != "weekly" || rules[0].Weekday != 5 {
		t.Errorf("rules = %+v", rules)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(newFakeRepo())
	if w := do(t, s, "GET", "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	if w := do(t, s, "GET", "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("readyz = %d", w.Code)
	}
	if w := do(t, s, "GET", "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("metrics = %d", w.Code)
	}
}
