package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
)

// Analyzer runs one product analysis.
type Analyzer interface {
	Analyze(ctx context.Context, url string, obs analyzer.Observer) (*models.Report, error)
}

type Handlers struct {
	analyzer Analyzer
	logger   *slog.Logger

	// one browser session at a time
	mu sync.Mutex
}

func NewHandlers(a Analyzer, logger *slog.Logger) *Handlers {
	return &Handlers{
		analyzer: a,
		logger:   logger.With("component", "api"),
	}
}

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type AnalyzeResponse struct {
	*models.Report
	// Sampled is set when only part of the collected reviews was classified.
	Sampled bool   `json:"sampled"`
	Error   string `json:"error,omitempty"`
}

func newAnalyzeResponse(report *models.Report, err error) AnalyzeResponse {
	resp := AnalyzeResponse{Report: report, Sampled: report.Sampled()}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// Analyze handles POST /api/v1/analyze. The product record is returned even
// when the page could not be scraped so callers can see which fields failed.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := scraper.ValidateProductURL(req.URL); err != nil {
		h.respondError(w, http.StatusBadRequest, "please enter a valid Amazon product URL")
		return
	}

	h.mu.Lock()
	report, err := h.analyzer.Analyze(r.Context(), req.URL, nil)
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("analysis failed", "url", req.URL, "error", err)
		status := statusFor(err)
		if report == nil {
			h.respondError(w, status, err.Error())
			return
		}
		h.respondJSON(w, status, newAnalyzeResponse(report, err))
		return
	}

	h.respondJSON(w, http.StatusOK, newAnalyzeResponse(report, nil))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor checks the deadline first: a timed-out fetch also surfaces as
// ErrProductUnavailable.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scraper.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrProductUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, analyzer.ErrBrowserInit):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
