package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReady answers "ready" when the ready check passes or none is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m := s.trace.GetMetrics()
	body := map[string]any{
		"uptime":            time.Since(s.started).Round(time.Second).String(),
		"total_requests":    m.TotalRequests,
		"total_duration_ms": m.TotalDurationMs,
		"mode":              s.mode(),
	}
	if s.stats != nil {
		body["row_index"] = s.stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) mode() string {
	if s.publisher != nil {
		return "queue"
	}
	return "sync"
}
