// Package handlers provides HTTP handlers for portfolio analytics.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 20

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// CalculateRequest optionally carries holdings; when omitted the stored
// portfolio is analyzed.
type CalculateRequest struct {
	Holdings []domain.Holding `json:"holdings"`
}

// HandleCalculate handles POST /api/analytics/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		analysis *analytics.Analysis
		err      error
	)
	if req.Holdings != nil {
		analysis, err = h.service.AnalyzeHoldings(r.Context(), req.Holdings)
	} else {
		analysis, err = h.service.Analyze(r.Context())
	}
	if errors.Is(err, domain.ErrNoHoldings) {
		h.writeError(w, http.StatusUnprocessableEntity, "at least one holding is required")
		return
	}
	if errors.Is(err, domain.ErrNoPortfolioValue) {
		h.writeError(w, http.StatusUnprocessableEntity, "holdings have no market value")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to calculate analytics")
		h.writeError(w, http.StatusInternalServerError, "Failed to calculate analytics")
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
}

// HandleGetLatest handles GET /api/analytics/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.Latest(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no analytics snapshot yet")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest analytics")
		h.writeError(w, http.StatusInternalServerError, "Failed to load latest analytics")
		return
	}

	h.writeJSON(w, http.StatusOK, latest)
}

// HandleGetHistory handles GET /api/analytics/history?limit=N
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load analytics history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load analytics history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": history,
		"count":     len(history),
	})
}

// writeJSON wraps data in the response envelope. The body is marshaled before
// the status is written so non-finite floats turn into a 422.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Result is not JSON-encodable")
		h.writeError(w, http.StatusUnprocessableEntity, "result contains non-finite values; check holding prices and quantities")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}
