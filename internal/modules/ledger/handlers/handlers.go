// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/modules/ledger"
	"github.com/siteledger/capital/internal/utils"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler handles ledger HTTP requests
type Handler struct {
	repo *ledger.Repository
	log  zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	repo *ledger.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultLimit, maxLimit)

	filter := ledger.Filter{
		Type:       ledger.TransactionType(r.URL.Query().Get("type")),
		Status:     ledger.TransactionStatus(r.URL.Query().Get("status")),
		InvestorID: r.URL.Query().Get("investor_id"),
		RequestID:  r.URL.Query().Get("request_id"),
		Limit:      limit,
	}
	if filter.Type != "" && !filter.Type.Valid() {
		http.Error(w, "Unknown transaction type", http.StatusBadRequest)
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		http.Error(w, "Unknown transaction status", http.StatusBadRequest)
		return
	}

	txs, err := h.repo.ListTransactions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query capital transactions")
		http.Error(w, "Failed to query transactions", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": txs,
			"count":        len(txs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"limit":     limit,
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSummary handles GET /api/ledger/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize capital transactions")
		http.Error(w, "Failed to summarize transactions", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"by_type_status":     rows,
			"total_transactions": total,
		},
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
