package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"scadenze/internal/core"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	winStart, winEnd, err := parseWindow(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := snapshotCacheKey(winStart, winEnd, today)
	if snap, ok := s.snapshotCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Snapshot cache hit", "key", key)
		writeJSON(w, http.StatusOK, buildSnapshotResponse(winStart, winEnd, today, snap))
		return
	}

	snap, err := s.bills.Snapshot(r.Context(), winStart, winEnd, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.snapshotCache.Set(key, snap)

	writeJSON(w, http.StatusOK, buildSnapshotResponse(winStart, winEnd, today, snap))
}

func (s *Server) handleWeekAhead(w http.ResponseWriter, r *http.Request) {
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	winEnd := today.AddDays(6)

	key := snapshotCacheKey(today, winEnd, today)
	if snap, ok := s.snapshotCache.Get(key); ok {
		writeJSON(w, http.StatusOK, buildSnapshotResponse(today, winEnd, today, snap))
		return
	}

	snap, err := s.bills.WeekAhead(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.snapshotCache.Set(key, snap)

	writeJSON(w, http.StatusOK, buildSnapshotResponse(today, winEnd, today, snap))
}

func snapshotCacheKey(winStart, winEnd, today core.Date) string {
	return fmt.Sprintf("%s|%s|%s", winStart, winEnd, today)
}
