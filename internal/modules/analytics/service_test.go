package analytics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/siteledger/capital/internal/modules/ledger"
	testingpkg "github.com/siteledger/capital/internal/testing"
)

func newTestService(ds *ledger.Dataset, now time.Time) (*Service, *testingpkg.MockDataSource) {
	source := testingpkg.NewMockDataSource(ds)
	svc := NewService(source, DefaultConfig(), zerolog.Nop())
	svc.SetClock(func() time.Time { return now })
	return svc, source
}

func TestService_ProjectViews(t *testing.T) {
	svc, source := newTestService(testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))

	views, err := svc.ProjectViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "proj-1", views[0].ProjectID)
	assert.Equal(t, 1, source.Calls(), "dataset fetched once per call")
}

func TestService_PlatformSummary(t *testing.T) {
	svc, _ := newTestService(testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))

	summary, err := svc.PlatformSummary(context.Background())
	require.NoError(t, err)
	assertDec(t, "1000000", summary.TotalFunded, "funded")
	assertDec(t, "1150000", summary.TotalReturns, "returns")
	assertDec(t, "0", summary.Outstanding, "outstanding")
	assertDec(t, "2500", summary.PlatformFee, "platform fee")
	assertDec(t, "182000", summary.ParticipationFee, "participation fee")
	assertDec(t, "1184500", summary.TotalDue, "total due")
	assert.Equal(t, 1, summary.RequestCount)
}

func TestService_InvestorView(t *testing.T) {
	svc, _ := newTestService(testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))
	ctx := context.Background()

	view, err := svc.InvestorView(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", view.InvestorID)
	assert.True(t, view.ROIConverged)
	assert.InDelta(t, 32.35, view.ROI, 0.05)

	_, err = svc.InvestorView(ctx, "inv-404")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_InvestorViewWithoutInvestorList(t *testing.T) {
	ds := testingpkg.NewEndToEndDataset()
	ds.Investors = nil
	svc, _ := newTestService(ds, testingpkg.Date(2024, time.July, 1))

	view, err := svc.InvestorView(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "", view.Name)
	assertDec(t, "1000000", view.TotalInvested, "invested")
}

func TestService_InvestorViews(t *testing.T) {
	svc, _ := newTestService(testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))

	views, err := svc.InvestorViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "inv-1", views[0].InvestorID)
	assert.Equal(t, "inv-2", views[1].InvestorID)
}

func TestService_RequestFees(t *testing.T) {
	svc, _ := newTestService(testingpkg.NewEndToEndDataset(), testingpkg.Date(2024, time.July, 1))
	ctx := context.Background()

	view, err := svc.RequestFees(ctx, "pr-1")
	require.NoError(t, err)
	assert.Equal(t, 182, view.DaysOutstanding)
	assertDec(t, "1000000", view.TotalRequested, "requested")
	assertDec(t, "1184500", view.TotalDue, "total due")

	_, err = svc.RequestFees(ctx, "pr-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DataLayerFailureSurfaces(t *testing.T) {
	svc, source := newTestService(nil, time.Now())
	source.SetError(errors.New("database is locked"))
	ctx := context.Background()

	_, err := svc.ProjectViews(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = svc.InvestorView(ctx, "inv-1")
	assert.Error(t, err)
	_, err = svc.PlatformSummary(ctx)
	assert.Error(t, err)
	_, err = svc.InvestorViews(ctx)
	assert.Error(t, err)
	_, err = svc.RequestFees(ctx, "pr-1")
	assert.Error(t, err)
}

func TestService_DegradedDataStillRenders(t *testing.T) {
	ds := testingpkg.NewEndToEndDataset()
	ds.Transactions = append(ds.Transactions,
		testingpkg.Tx("orphan", ledger.TypeDeployment, "5000", testingpkg.Date(2024, 2, 1), "inv-1", "pr-ghost"),
	)
	svc, source := newTestService(ds, testingpkg.Date(2024, time.July, 1))
	source.SetDiagnostics(ledger.Diagnostics{CoercedAmounts: 2})

	views, err := svc.ProjectViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assertDec(t, "1000000", views[0].TotalFunded, "orphan deployment skipped")
}

func TestBuildProjectWorkbook(t *testing.T) {
	svc, _ := newTestService(testingpkg.NewPortfolioDataset(), testingpkg.Date(2024, time.June, 1))
	ctx := context.Background()

	views, err := svc.ProjectViews(ctx)
	require.NoError(t, err)
	summary, err := svc.PlatformSummary(ctx)
	require.NoError(t, err)

	data, err := BuildProjectWorkbook(views, summary, testingpkg.Date(2024, time.June, 1))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "projects", "requests"}, f.GetSheetList())

	name, err := f.GetCellValue("projects", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Towers", name)

	funded, err := f.GetCellValue("projects", "E2")
	require.NoError(t, err)
	assert.Equal(t, "550000", funded)

	rows, err := f.GetRows("requests")
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header plus three requests")

	generated, err := f.GetCellValue("summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T00:00:00Z", generated)
}
