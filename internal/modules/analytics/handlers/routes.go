package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		// Project rollups
		r.Get("/projects", h.HandleGetProjects)
		r.Get("/projects/export.xlsx", h.HandleExportProjects)
		r.Get("/platform", h.HandleGetPlatform)

		// Investor dashboards
		r.Get("/investors", h.HandleGetInvestors)
		r.Get("/investors/{id}", h.HandleGetInvestor)

		// Per-request fees
		r.Route("/requests/{id}", func(r chi.Router) {
			r.Get("/fees", h.HandleGetRequestFees)
			r.Get("/invoice-lines", h.HandleGetInvoiceLines)
		})
	})
}
