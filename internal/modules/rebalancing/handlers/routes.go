package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalancing", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.HandleCreatePlan)
			r.Get("/", h.HandleListPlans)
			r.Get("/{id}", h.HandleGetPlan)
			r.Post("/{id}/status", h.HandleUpdateStatus)
		})
	})
}
