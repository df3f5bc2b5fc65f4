package server

import (
	"encoding/json"
	"net/http"
	"time"

	"execbrief/internal/core"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Version string           `json:"version"`
	Uptime  string           `json:"uptime"`
	Cache   *core.CacheStats `json:"cache,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if s.store != nil {
		if _, err := s.store.Stats(); err != nil {
			checks["cache"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Checks: checks,
			})
			return
		}
		checks["cache"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Version: "v1.0.0",
		Uptime:  time.Since(serverStartTime).String(),
	}

	if s.store != nil {
		if stats, err := s.store.Stats(); err == nil {
			resp.Cache = stats
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode response", "error", err.Error())
	}
}

// respondError writes a JSON error response. Messages must be descriptive
// but never leak internal details.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
