package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"scadenze/internal/cache"
	"scadenze/internal/core"
	"scadenze/internal/middleware/trace"
	"scadenze/internal/services"
)

const mutationRateLimit = 60 // per client per minute

// Server exposes the bills module as a JSON API. Snapshot reads go
// through a short-TTL LRU keyed by the full query; every mutation
// clears it so the next read observes the new state.
type Server struct {
	http.Server
	bills         *services.BillsService
	tracer        *trace.Middleware
	rateLimiter   *rateLimiter
	snapshotCache cache.Cache[core.Snapshot]
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, bills *services.BillsService, snapshotTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		bills:         bills,
		tracer:        trace.NewMiddleware(clientIP),
		rateLimiter:   newRateLimiter(mutationRateLimit),
		snapshotCache: cache.NewLRUCache[core.Snapshot](100, snapshotTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/bills/week", s.handleWeekAhead)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.limited(s.handleCreateEntry))
	mux.HandleFunc("PUT /api/entries/{id}", s.limited(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/entries/{id}", s.limited(s.handleDeleteEntry))
	mux.HandleFunc("POST /api/entries/{id}/pay", s.limited(s.handlePayEntry))
	mux.HandleFunc("POST /api/entries/{id}/postpone", s.limited(s.handlePostponeEntry))

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.limited(s.handleCreateRule))
	mux.HandleFunc("PUT /api/rules/{id}", s.limited(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/rules/{id}", s.limited(s.handleDeleteRule))
	mux.HandleFunc("POST /api/rules/{id}/occurrences/{date}/pay", s.limited(s.handlePayOccurrence))
	mux.HandleFunc("POST /api/rules/{id}/occurrences/{date}/postpone", s.limited(s.handlePostponeOccurrence))
	mux.HandleFunc("POST /api/rules/{id}/occurrences/{date}/skip", s.limited(s.handleSkipOccurrence))

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.tracer.Middleware(mux),
	}

	return s
}

// limited applies per-client rate limiting to mutating handlers.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

// invalidateSnapshots drops every cached snapshot. Mutations are rare
// compared to reads, so wholesale clearing beats tracking which
// windows a change touches.
func (s *Server) invalidateSnapshots() {
	s.snapshotCache.Clear()
}

// Shutdown stops the limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.tracer.GetMetrics()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "http_requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "http_response_time_us %d\n", m.AverageResponseTime)
	fmt.Fprintf(w, "snapshot_cache_size %d\n", s.snapshotCache.Size())
}
