// Package handlers provides HTTP handlers for the holdings store.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/portfolio"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles holdings HTTP requests
type Handler struct {
	repo *portfolio.HoldingRepository
	log  zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *portfolio.HoldingRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetHoldings handles GET /api/portfolio/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.repo.GetAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get holdings")
		h.writeError(w, http.StatusInternalServerError, "Failed to get holdings")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// HandlePutHolding handles PUT /api/portfolio/holdings
func (h *Handler) HandlePutHolding(w http.ResponseWriter, r *http.Request) {
	var holding domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.repo.Upsert(r.Context(), holding)
	if errors.Is(err, portfolio.ErrInvalidHolding) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", holding.Symbol).Msg("Failed to store holding")
		h.writeError(w, http.StatusInternalServerError, "Failed to store holding")
		return
	}

	stored, err := h.repo.Get(r.Context(), holding.Symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", holding.Symbol).Msg("Failed to reload holding")
		h.writeError(w, http.StatusInternalServerError, "Failed to reload holding")
		return
	}

	h.writeJSON(w, http.StatusOK, stored)
}

// HandleDeleteHolding handles DELETE /api/portfolio/holdings/{symbol}
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(chi.URLParam(r, "symbol"))

	err := h.repo.Delete(r.Context(), symbol)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "holding not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete holding")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete holding")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": symbol})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
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
