// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultListLimit = 20

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *rebalancing.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// UpdateStatusRequest represents a plan status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// HandleCreatePlan handles POST /api/rebalancing/plans
func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req rebalancing.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Plan(r.Context(), req)
	switch {
	case errors.Is(err, rebalancing.ErrInvalidRequest), errors.Is(err, rebalancing.ErrHistoryRequired):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrNoHoldings):
		h.writeError(w, http.StatusUnprocessableEntity, "at least one holding is required")
		return
	case errors.Is(err, domain.ErrNoPortfolioValue):
		h.writeError(w, http.StatusUnprocessableEntity, "holdings have no market value")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to generate rebalancing plan")
		h.writeError(w, http.StatusInternalServerError, "Failed to generate rebalancing plan")
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// HandleListPlans handles GET /api/rebalancing/plans?status=&limit=
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	var status rebalancing.PlanStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := rebalancing.ParsePlanStatus(raw)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "status must be pending, applied or rejected")
			return
		}
		status = parsed
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	plans, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rebalancing plans")
		h.writeError(w, http.StatusInternalServerError, "Failed to list rebalancing plans")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// HandleGetPlan handles GET /api/rebalancing/plans/{id}
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load rebalancing plan")
		h.writeError(w, http.StatusInternalServerError, "Failed to load rebalancing plan")
		return
	}

	h.writeJSON(w, http.StatusOK, plan)
}

// HandleUpdateStatus handles POST /api/rebalancing/plans/{id}/status
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, ok := rebalancing.ParsePlanStatus(req.Status)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "status must be pending, applied or rejected")
		return
	}

	plan, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "plan not found")
		return
	case errors.Is(err, rebalancing.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to update plan status")
		h.writeError(w, http.StatusInternalServerError, "Failed to update plan status")
		return
	}

	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Plan is not JSON-encodable")
		h.writeError(w, http.StatusUnprocessableEntity, "plan contains non-finite values; check holding prices and quantities")
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
