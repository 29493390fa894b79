// Package handlers provides HTTP handlers for historical price bars.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/historical"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 365
)

// Handler handles historical data HTTP requests
type Handler struct {
	store historical.BarStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewHandler creates a new historical data handler
func NewHandler(store historical.BarStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		now:   time.Now,
		log:   log.With().Str("handler", "historical").Logger(),
	}
}

// SaveBarsRequest carries bars to import
type SaveBarsRequest struct {
	Bars []domain.PriceBar `json:"bars"`
}

// HandleSaveBars handles POST /api/historical/{symbol}/bars
func (h *Handler) HandleSaveBars(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(chi.URLParam(r, "symbol"))

	var req SaveBarsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Bars) == 0 {
		h.writeError(w, http.StatusBadRequest, "bars must not be empty")
		return
	}

	if err := h.store.SaveBars(r.Context(), symbol, req.Bars); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save bars")
		h.writeError(w, http.StatusInternalServerError, "Failed to save bars")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"symbol": symbol,
		"saved":  len(req.Bars),
	})
}

// HandleGetBars handles GET /api/historical/{symbol}/bars?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) HandleGetBars(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(chi.URLParam(r, "symbol"))

	to := h.now().UTC()
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}
	from := to.AddDate(0, 0, -defaultRangeDays)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if from.After(to) {
		h.writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	bars, err := h.store.GetBars(r.Context(), symbol, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get bars")
		h.writeError(w, http.StatusInternalServerError, "Failed to get bars")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"bars":   bars,
		"count":  len(bars),
	})
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
