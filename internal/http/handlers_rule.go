package http

import (
	"net/http"
	"sort"

	"scadenze/internal/core"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.bills.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, buildRuleResponse(rule))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := req.toRule(0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.bills.UpsertRule(r.Context(), rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := req.toRule(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.bills.UpsertRule(r.Context(), rule); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.DeleteRule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}

// occurrenceTarget parses the {id}/{date} pair every occurrence
// mutation addresses: the rule and the ORIGINAL occurrence date.
func occurrenceTarget(r *http.Request) (int64, core.Date, error) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		return 0, core.Date{}, err
	}
	date, err := parseDatePath(r, "date")
	if err != nil {
		return 0, core.Date{}, err
	}
	return id, date, nil
}

func (s *Server) handlePayOccurrence(w http.ResponseWriter, r *http.Request) {
	ruleID, occDate, err := occurrenceTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	paidOn, err := req.paidOn()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.MarkOccurrencePaid(r.Context(), ruleID, occDate, paidOn); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostponeOccurrence(w http.ResponseWriter, r *http.Request) {
	ruleID, occDate, err := occurrenceTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postponeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	newEffective, err := req.newDate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.PostponeOccurrence(r.Context(), ruleID, occDate, newEffective); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSkipOccurrence(w http.ResponseWriter, r *http.Request) {
	ruleID, occDate, err := occurrenceTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.SkipOccurrence(r.Context(), ruleID, occDate); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}
