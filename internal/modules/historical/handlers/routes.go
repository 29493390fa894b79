package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all historical data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/historical", func(r chi.Router) {
		r.Route("/{symbol}/bars", func(r chi.Router) {
			r.Post("/", h.HandleSaveBars)
			r.Get("/", h.HandleGetBars)
		})
	})
}
