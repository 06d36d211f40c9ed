// Package handlers provides HTTP handlers for the analytics views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/modules/analytics"
	"github.com/siteledger/capital/internal/modules/invoice"
	"github.com/siteledger/capital/internal/observability/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(
	service *analytics.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetProjects handles GET /api/analytics/projects
func (h *Handler) HandleGetProjects(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ProjectViews(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to build project views")
		return
	}

	h.writeData(w, map[string]interface{}{
		"projects": views,
		"count":    len(views),
	})
}

// HandleExportProjects handles GET /api/analytics/projects/export.xlsx
func (h *Handler) HandleExportProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.service.ProjectViews(ctx)
	if err != nil {
		metrics.IncExport("xlsx", metrics.ResultError)
		h.writeServiceError(w, err, "Failed to build project views for export")
		return
	}
	summary, err := h.service.PlatformSummary(ctx)
	if err != nil {
		metrics.IncExport("xlsx", metrics.ResultError)
		h.writeServiceError(w, err, "Failed to build platform summary for export")
		return
	}

	data, err := analytics.BuildProjectWorkbook(views, summary, time.Now().UTC())
	if err != nil {
		metrics.IncExport("xlsx", metrics.ResultError)
		h.log.Error().Err(err).Msg("Failed to render project workbook")
		http.Error(w, "Failed to render workbook", http.StatusInternalServerError)
		return
	}
	metrics.IncExport("xlsx", metrics.ResultSuccess)

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="projects.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to write workbook")
	}
}

// HandleGetPlatform handles GET /api/analytics/platform
func (h *Handler) HandleGetPlatform(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.PlatformSummary(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to build platform summary")
		return
	}

	h.writeData(w, summary)
}

// HandleGetInvestors handles GET /api/analytics/investors
func (h *Handler) HandleGetInvestors(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.InvestorViews(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to build investor views")
		return
	}

	h.writeData(w, map[string]interface{}{
		"investors": views,
		"count":     len(views),
	})
}

// HandleGetInvestor handles GET /api/analytics/investors/{id}
func (h *Handler) HandleGetInvestor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.InvestorView(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to build investor view")
		return
	}

	h.writeData(w, view)
}

// HandleGetRequestFees handles GET /api/analytics/requests/{id}/fees
func (h *Handler) HandleGetRequestFees(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.RequestFees(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to compute request fees")
		return
	}

	h.writeData(w, view)
}

// HandleGetInvoiceLines handles GET /api/analytics/requests/{id}/invoice-lines
// The invoice is billed on the funded amount, the same base as the fees endpoint.
func (h *Handler) HandleGetInvoiceLines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.RequestFees(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to compute invoice lines")
		return
	}

	h.writeData(w, map[string]interface{}{
		"request_id": view.RequestID,
		"invoice":    invoice.Lines(view.TotalFunded, view.Terms),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, analytics.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
