package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/siteledger/capital/internal/modules/analytics"
	"github.com/siteledger/capital/internal/modules/ledger"
	testingpkg "github.com/siteledger/capital/internal/testing"
)

func setupRouter(t *testing.T, ds *ledger.Dataset, now time.Time) (chi.Router, *testingpkg.MockDataSource) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	source := testingpkg.NewMockDataSource(ds)
	svc := analytics.NewService(source, analytics.DefaultConfig(), logger)
	svc.SetClock(func() time.Time { return now })

	r := chi.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(r)
	return r, source
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Contains(t, response, "data")
	require.Contains(t, response, "metadata")
	return response["data"].(map[string]interface{})
}

func assertAmount(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "amounts are encoded as strings, got %T", got)
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s got %s", want, s)
}

func TestHandleGetProjects(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))

	w := doGet(r, "/analytics/projects")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["count"])
	projects := data["projects"].([]interface{})
	first := projects[0].(map[string]interface{})
	assert.Equal(t, "proj-1", first["project_id"])
	assertAmount(t, "550000", first["total_funded"])
	assertAmount(t, "592825", first["total_due"])
}

func TestHandleGetPlatform(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	w := doGet(r, "/analytics/platform")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assertAmount(t, "1184500", data["total_due"])
}

func TestHandleGetInvestor(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	w := doGet(r, "/analytics/investors/inv-1")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "inv-1", data["investorId"])
	assert.InDelta(t, 32.35, data["roi"].(float64), 0.05)
	assertAmount(t, "1000000", data["totalInvested"])
	assertAmount(t, "1124000", data["netCapitalReturns"])
}

func TestHandleGetInvestor_NotFound(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	w := doGet(r, "/analytics/investors/inv-404")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetInvestors(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))

	w := doGet(r, "/analytics/investors")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["count"])
}

func TestHandleGetRequestFees(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	w := doGet(r, "/analytics/requests/pr-1/fees")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(182), data["days_outstanding"])
	assertAmount(t, "2500", data["platform_fee"])
	assertAmount(t, "182000", data["participation_fee"])

	w = doGet(r, "/analytics/requests/pr-404/fees")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetInvoiceLines(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	w := doGet(r, "/analytics/requests/pr-1/invoice-lines")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "pr-1", data["request_id"])
	inv := data["invoice"].(map[string]interface{})
	lines := inv["lines"].([]interface{})
	require.Len(t, lines, 2)
	fee := lines[1].(map[string]interface{})
	assert.Equal(t, "platform_fee", fee["kind"])
	assertAmount(t, "2500", fee["amount"])
	assertAmount(t, "1002500", inv["total"])
}

func TestHandleGetInvoiceLines_MatchesFeesWhenPartiallyFunded(t *testing.T) {
	ds := testingpkg.NewEndToEndDataset()
	ds.Transactions = []ledger.CapitalTransaction{
		testingpkg.Tx("tx-dep-1", ledger.TypeDeployment, "400000", testingpkg.Date(2024, time.January, 1), "inv-1", "pr-1"),
	}
	r, _ := setupRouter(t, ds, testingpkg.Date(2024, time.February, 1))

	w := doGet(r, "/analytics/requests/pr-1/fees")
	require.Equal(t, http.StatusOK, w.Code)
	feeData := decodeData(t, w)
	assertAmount(t, "1000000", feeData["total_requested"])
	assertAmount(t, "400000", feeData["total_funded"])
	assertAmount(t, "1000", feeData["platform_fee"])

	w = doGet(r, "/analytics/requests/pr-1/invoice-lines")
	require.Equal(t, http.StatusOK, w.Code)
	inv := decodeData(t, w)["invoice"].(map[string]interface{})
	lines := inv["lines"].([]interface{})
	require.Len(t, lines, 2)
	fee := lines[1].(map[string]interface{})
	assert.Equal(t, "platform_fee", fee["kind"])
	assertAmount(t, "1000", fee["amount"])
	assertAmount(t, "401000", inv["total"])
}

func TestHandleExportProjects(t *testing.T) {
	r, _ := setupRouter(t, testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))

	w := doGet(r, "/analytics/projects/export.xlsx")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("projects", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Towers", name)
}

func TestHandlers_DataLayerFailure(t *testing.T) {
	r, source := setupRouter(t, nil, time.Now())
	source.SetError(errors.New("database is locked"))

	for _, path := range []string{
		"/analytics/projects",
		"/analytics/projects/export.xlsx",
		"/analytics/platform",
		"/analytics/investors",
		"/analytics/investors/inv-1",
		"/analytics/requests/pr-1/fees",
		"/analytics/requests/pr-1/invoice-lines",
	} {
		w := doGet(r, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.NotContains(t, w.Body.String(), "database is locked", "internal errors are not leaked: %s", path)
	}
}
