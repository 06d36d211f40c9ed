package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteledger/capital/internal/modules/ledger"
	testingpkg "github.com/siteledger/capital/internal/testing"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db := testingpkg.NewSeededLedgerDB(t, testingpkg.NewPortfolioDataset())

	r := chi.NewRouter()
	NewHandler(ledger.NewRepository(db.Conn(), logger), logger).RegisterRoutes(r)
	return r
}

func getData(t *testing.T, r http.Handler, path string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response, "metadata")
	return response["data"].(map[string]interface{})
}

func TestHandleGetTransactions(t *testing.T) {
	r := setupRouter(t)

	data := getData(t, r, "/ledger/transactions")
	assert.Equal(t, float64(11), data["count"])

	txs := data["transactions"].([]interface{})
	latest := txs[0].(map[string]interface{})
	oldest := txs[len(txs)-1].(map[string]interface{})
	assert.Equal(t, "t1", oldest["id"], "most recent first")
	assert.NotEqual(t, "t1", latest["id"])
}

func TestHandleGetTransactions_Filters(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name  string
		path  string
		count float64
	}{
		{"by type", "/ledger/transactions?type=deployment", 5},
		{"by status", "/ledger/transactions?status=pending", 1},
		{"by investor and status", "/ledger/transactions?investor_id=inv-1&status=completed", 5},
		{"by request", "/ledger/transactions?request_id=pr-a&status=completed", 3},
		{"limit", "/ledger/transactions?limit=2", 2},
		{"bad limit falls back to default", "/ledger/transactions?limit=abc", 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := getData(t, r, tt.path)
			assert.Equal(t, tt.count, data["count"])
		})
	}
}

func TestHandleGetTransactions_UnknownType(t *testing.T) {
	r := setupRouter(t)

	for _, path := range []string{"/ledger/transactions?type=dividend", "/ledger/transactions?status=settled"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestHandleGetSummary(t *testing.T) {
	r := setupRouter(t)

	data := getData(t, r, "/ledger/summary")
	assert.Equal(t, float64(11), data["total_transactions"])

	rows := data["by_type_status"].([]interface{})
	found := false
	for _, raw := range rows {
		row := raw.(map[string]interface{})
		if row["transaction_type"] == "deployment" && row["status"] == "completed" {
			found = true
			assert.Equal(t, float64(4), row["count"])
			assert.Equal(t, "700000", row["total"])
		}
	}
	assert.True(t, found)
}
