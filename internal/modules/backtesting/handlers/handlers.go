// Package handlers provides HTTP handlers for backtests.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultListLimit = 20

// Handler handles backtest HTTP requests
type Handler struct {
	service *backtesting.Service
	log     zerolog.Logger
}

// NewHandler creates a new backtest handler
func NewHandler(service *backtesting.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "backtesting").Logger(),
	}
}

// HandleRun handles POST /api/backtests
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req backtesting.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	run, err := h.service.Run(r.Context(), req)
	if errors.Is(err, backtesting.ErrInvalidConfig) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Backtest failed")
		h.writeError(w, http.StatusInternalServerError, "Backtest failed")
		return
	}

	h.writeJSON(w, http.StatusCreated, run)
}

// HandleList handles GET /api/backtests?limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backtests")
		h.writeError(w, http.StatusInternalServerError, "Failed to list backtests")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGet handles GET /api/backtests/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "backtest not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load backtest")
		h.writeError(w, http.StatusInternalServerError, "Failed to load backtest")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// HandleEquityChart handles GET /api/backtests/{id}/equity.png
func (h *Handler) HandleEquityChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.EquityChart(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "backtest not found")
		return
	case errors.Is(err, backtesting.ErrNoEquityCurve):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to render equity curve")
		h.writeError(w, http.StatusInternalServerError, "Failed to render equity curve")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Backtest result is not JSON-encodable")
		h.writeError(w, http.StatusUnprocessableEntity, "backtest result contains non-finite values; check price bars")
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
