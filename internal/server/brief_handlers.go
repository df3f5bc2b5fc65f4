package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"execbrief/internal/core"
	"execbrief/internal/llm"
	"execbrief/internal/pipeline"
	"execbrief/internal/report"
)

// ExportRequest is the body of POST /executive-brief-pdf.
type ExportRequest struct {
	Brief *core.Brief `json:"brief"`
}

// handleGetBrief handles GET /executive-brief. Query parameters: range
// (24h|7d|14d|30d), max, tag, and action=generate for an admin-triggered
// regeneration that bypasses the same-day cache.
func (s *Server) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.Options{
		TimeRange: r.URL.Query().Get("range"),
		Tag:       r.URL.Query().Get("tag"),
	}

	if raw := r.URL.Query().Get("max"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil || max < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid max parameter")
			return
		}
		opts.MaxItems = max
	}

	if r.URL.Query().Get("action") == "generate" {
		if !s.authorizeAdmin(w, r) {
			return
		}
		opts.Force = true
	}

	if err := opts.Normalize(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	brief, err := s.pipeline.GetOrGenerate(r.Context(), opts)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, brief)
}

// handleExportBrief handles POST /executive-brief-pdf: it validates the
// posted brief and returns a self-contained static document.
func (s *Server) handleExportBrief(w http.ResponseWriter, r *http.Request) {
	// The request carries at most MaxExportItems items; 8 MB bounds even a
	// payload of maximum-length fields.
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Brief == nil {
		s.respondError(w, http.StatusBadRequest, "Missing brief")
		return
	}

	document, err := report.RenderHTML(req.Brief)
	if err != nil {
		var validationErr *report.ValidationError
		if errors.As(err, &validationErr) {
			s.respondError(w, http.StatusBadRequest, validationErr.Message)
			return
		}
		s.log.Error("Brief export failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "Failed to render document")
		return
	}

	filename := "executive-brief-" + req.Brief.GeneratedAt.Format("2006-01-02") + ".html"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(document))
}

// respondPipelineError maps pipeline failures onto the HTTP error contract:
// 429 for upstream rate limits, 402 for usage/billing exhaustion, 400 for
// validation, and a generic 500 otherwise.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case llm.IsRateLimited(err):
		s.respondError(w, http.StatusTooManyRequests, "Upstream rate limit reached; please retry shortly")
	case llm.IsQuotaExhausted(err):
		s.respondError(w, http.StatusPaymentRequired, "Upstream usage limit reached; check provider billing")
	case errors.Is(err, pipeline.ErrNoSources):
		s.log.Error("Brief generation failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "No sources reachable; please retry later")
	default:
		// Log type only; item text from external sources never reaches logs.
		s.log.Error("Brief generation failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "Failed to generate brief")
	}
}
