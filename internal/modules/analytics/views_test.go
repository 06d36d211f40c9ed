package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteledger/capital/internal/modules/exposure"
	"github.com/siteledger/capital/internal/modules/fees"
	"github.com/siteledger/capital/internal/modules/ledger"
	"github.com/siteledger/capital/internal/modules/xirr"
	testingpkg "github.com/siteledger/capital/internal/testing"
)

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(testingpkg.Dec(want)), "%s: want %s got %s", field, want, got.String())
}

func TestBuildProjectViews(t *testing.T) {
	ds := testingpkg.NewPortfolioDataset()
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))
	now := testingpkg.Date(2024, time.June, 1)

	views, diag := BuildProjectViews(res, ds, now, fees.DefaultTerms())
	assert.True(t, diag.Empty())
	require.Len(t, views, 2)

	p1 := views[0]
	assert.Equal(t, "proj-1", p1.ProjectID, "largest funded first")
	assert.Equal(t, "Riverside Towers", p1.ProjectName)
	assert.Equal(t, "Kaveri Builders", p1.ContractorName)
	assert.Equal(t, 2, p1.RequestCount)
	assertDec(t, "550000", p1.TotalFunded, "funded")
	assertDec(t, "320000", p1.TotalReturns, "returns")
	assertDec(t, "250000", p1.Outstanding, "outstanding")
	assertDec(t, "5500", p1.PlatformFee, "platform fee")
	assertDec(t, "37325", p1.ParticipationFee, "participation fee")
	assertDec(t, "592825", p1.TotalDue, "total due")
	assert.Equal(t, 148, p1.DaysOutstanding)

	require.Len(t, p1.Requests, 2)
	prA := p1.Requests[0]
	assert.Equal(t, "pr-a", prA.RequestID)
	assertDec(t, "3000", prA.PlatformFee, "capped at contractor cap")
	assertDec(t, "22200", prA.ParticipationFee, "pr-a participation")
	assertDec(t, "325200", prA.TotalDue, "pr-a total due")
	assert.Equal(t, 148, prA.DaysOutstanding)

	p2 := views[1]
	assert.Equal(t, "proj-2", p2.ProjectID)
	assertDec(t, "375", p2.PlatformFee, "default rate applies")
	assertDec(t, "13800", p2.ParticipationFee, "default daily rate applies")
	assertDec(t, "164175", p2.TotalDue, "proj-2 total due")
	assert.Equal(t, 92, p2.DaysOutstanding)
}

func TestBuildProjectViews_StableOnTies(t *testing.T) {
	ds := &ledger.Dataset{
		Requests: []ledger.PurchaseRequest{
			{ID: "r1", ProjectID: "alpha"},
			{ID: "r2", ProjectID: "beta"},
			{ID: "r3", ProjectID: "gamma"},
		},
		Transactions: []ledger.CapitalTransaction{
			testingpkg.Tx("t1", ledger.TypeDeployment, "100", testingpkg.Date(2024, 1, 1), "", "r1"),
			testingpkg.Tx("t2", ledger.TypeDeployment, "100", testingpkg.Date(2024, 1, 1), "", "r2"),
			testingpkg.Tx("t3", ledger.TypeDeployment, "500", testingpkg.Date(2024, 1, 1), "", "r3"),
		},
	}
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))

	views, _ := BuildProjectViews(res, ds, testingpkg.Date(2024, 2, 1), fees.DefaultTerms())
	require.Len(t, views, 3)
	assert.Equal(t, "gamma", views[0].ProjectID)
	assert.Equal(t, "alpha", views[1].ProjectID)
	assert.Equal(t, "beta", views[2].ProjectID)
}

func TestBuildPlatformSummary(t *testing.T) {
	ds := testingpkg.NewPortfolioDataset()
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))
	views, _ := BuildProjectViews(res, ds, testingpkg.Date(2024, time.June, 1), fees.DefaultTerms())

	summary := BuildPlatformSummary(views, ds)
	assertDec(t, "700000", summary.TotalRequested, "requested")
	assertDec(t, "700000", summary.TotalFunded, "funded")
	assertDec(t, "320000", summary.TotalReturns, "returns")
	assertDec(t, "400000", summary.Outstanding, "outstanding")
	assertDec(t, "5875", summary.PlatformFee, "platform fee")
	assertDec(t, "51125", summary.ParticipationFee, "participation fee")
	assertDec(t, "757000", summary.TotalDue, "total due")
	assert.Equal(t, 3, summary.RequestCount)
	assert.Equal(t, 2, summary.InvestorCount)
	assert.Equal(t, 2, summary.ProjectCount)
	assert.Equal(t, 2, summary.ContractorCount)
}

func TestBuildInvestorView_Portfolio(t *testing.T) {
	ds := testingpkg.NewPortfolioDataset()
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))
	now := testingpkg.Date(2024, time.June, 1)

	inv, _ := ds.FindInvestor("inv-1")
	ie, _ := res.Investor("inv-1")
	view, returns, diag := BuildInvestorView(inv, ie, ds, now, fees.DefaultTerms(), fees.DefaultPolicy())
	assert.True(t, diag.Empty())

	assert.Equal(t, "Asha Menon", view.Name)
	assertDec(t, "450000", view.TotalInvested, "invested")
	assertDec(t, "320000", view.TotalReturns, "returns")
	assertDec(t, "130000", view.CurrentValue, "current value")
	assertDec(t, "9000", view.ManagementFees, "management fee")
	assertDec(t, "0", view.PerformanceFees, "below hurdle")
	assertDec(t, "311000", view.NetCapitalReturns, "net capital returns")
	assertDec(t, "500000", view.CapitalInflow, "inflow")
	assertDec(t, "320000", view.AvailableCapital, "available")
	assertDec(t, "50000", view.TotalWithdrawn, "withdrawn")
	assert.Equal(t, 1, view.ActiveInvestments)
	assert.Equal(t, 1, view.CompletedInvestments)

	require.Len(t, view.RequestRows, 2)
	assert.Equal(t, "pr-b", view.RequestRows[0].RequestID, "most recent request first")
	assert.Equal(t, "active", view.RequestRows[0].Status)
	prA := view.RequestRows[1]
	assert.Equal(t, "pr-a", prA.RequestID)
	assert.Equal(t, "completed", prA.Status)
	assert.Equal(t, 143, prA.DaysOutstanding, "from this investor's own first deployment")
	assertDec(t, "2000", prA.PlatformFee, "investor share platform fee")
	assertDec(t, "14300", prA.ParticipationFee, "investor share participation fee")
	assertDec(t, "216300", prA.TotalDue, "investor share total due")

	assert.True(t, returns.Gross.Converged)
	assert.Less(t, view.ROI, 0.0, "returned less than deployed")
	assert.LessOrEqual(t, view.NetROI, view.ROI)
}

func TestBuildInvestorView_OneSidedFlows(t *testing.T) {
	ds := testingpkg.NewPortfolioDataset()
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))

	inv, _ := ds.FindInvestor("inv-2")
	ie, _ := res.Investor("inv-2")
	view, returns, diag := BuildInvestorView(inv, ie, ds, testingpkg.Date(2024, time.June, 1), fees.DefaultTerms(), fees.DefaultPolicy())

	assert.Equal(t, xirr.ReasonDegenerate, returns.Gross.Reason)
	assert.Equal(t, 0.0, view.ROI)
	assert.Equal(t, 0.0, view.NetROI)
	assert.Equal(t, 0, diag.SolverFallbacks, "no rate is not a solver fallback")
	assert.Equal(t, "inactive", view.Status, "inactive investors still aggregate")
	assertDec(t, "250000", view.TotalInvested, "invested")
}

func TestBuildInvestorView_EndToEnd(t *testing.T) {
	ds := testingpkg.NewEndToEndDataset()
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))

	inv, _ := ds.FindInvestor("inv-1")
	ie, _ := res.Investor("inv-1")
	view, _, _ := BuildInvestorView(inv, ie, ds, testingpkg.Date(2024, time.July, 1), fees.DefaultTerms(), fees.DefaultPolicy())

	assert.InDelta(t, 32.35, view.ROI, 0.05)
	assert.Less(t, view.NetROI, view.ROI)
	assertDec(t, "0", view.CurrentValue, "fully repaid")
	assertDec(t, "20000", view.ManagementFees, "management fee")
	assertDec(t, "6000", view.PerformanceFees, "performance fee")
	assertDec(t, "1124000", view.NetCapitalReturns, "net capital returns")

	require.Len(t, view.RequestRows, 1)
	row := view.RequestRows[0]
	assert.Equal(t, 182, row.DaysOutstanding)
	assertDec(t, "2500", row.PlatformFee, "platform fee")
	assertDec(t, "182000", row.ParticipationFee, "participation fee")
	assertDec(t, "1184500", row.TotalDue, "total due")
	assert.Equal(t, "Riverside Towers", row.ProjectName)
}

func TestBuildInvestorView_FeesExceedReturns(t *testing.T) {
	ds := testingpkg.NewEndToEndDataset()
	ds.Transactions = []ledger.CapitalTransaction{
		testingpkg.Tx("tx-dep-1", ledger.TypeDeployment, "400000", testingpkg.Date(2024, time.January, 1), "inv-1", "pr-1"),
		testingpkg.Tx("tx-ret-1", ledger.TypeReturn, "5000", testingpkg.Date(2024, time.March, 1), "inv-1", "pr-1"),
	}
	res, _ := exposure.Aggregate(exposure.InputFromDataset(ds))

	inv, _ := ds.FindInvestor("inv-1")
	ie, _ := res.Investor("inv-1")
	view, returns, diag := BuildInvestorView(inv, ie, ds, testingpkg.Date(2024, time.March, 1), fees.DefaultTerms(), fees.DefaultPolicy())

	assertDec(t, "8000", view.ManagementFees, "fee larger than the only return")
	assert.Equal(t, xirr.ReasonNoRoot, returns.Net.Reason)
	assert.False(t, view.NetROIConverged)
	assert.False(t, math.IsNaN(view.NetROI) || math.IsInf(view.NetROI, 0))
	assert.InDelta(t, -99.99, view.NetROI, 1e-9, "floored, not a runaway estimate")
	assert.InDelta(t, -99.99, view.ROI, 1e-9)
	assert.LessOrEqual(t, view.NetROI, view.ROI)
	assert.Equal(t, 2, diag.SolverFallbacks)
}
