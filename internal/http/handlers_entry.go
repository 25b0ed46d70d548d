package http

import (
	"net/http"
	"sort"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.bills.ListEntries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, buildEntryResponse(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.toEntry(0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.bills.UpsertEntry(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.toEntry(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.bills.UpsertEntry(r.Context(), entry); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
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

	if err := s.bills.MarkEntryPaid(r.Context(), id, paidOn); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostponeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postponeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	newDue, err := req.newDate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.bills.PostponeEntry(r.Context(), id, newDue); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSnapshots()

	w.WriteHeader(http.StatusNoContent)
}
