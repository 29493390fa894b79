package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/calculate", h.HandleCalculate)
		r.Get("/latest", h.HandleGetLatest)
		r.Get("/history", h.HandleGetHistory)
	})
}
