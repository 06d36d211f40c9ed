// Package analytics composes exposure, fees and returns into the views served to the
// dashboards: projects, investors and the platform summary.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/modules/exposure"
	"github.com/siteledger/capital/internal/modules/fees"
	"github.com/siteledger/capital/internal/modules/ledger"
	"github.com/siteledger/capital/internal/modules/xirr"
)

// RequestView is the per-request output shape.
type RequestView struct {
	RequestID         string            `json:"request_id"`
	ProjectID         string            `json:"project_id"`
	ContractorID      string            `json:"contractor_id"`
	CreatedAt         time.Time         `json:"created_at"`
	TotalRequested    decimal.Decimal   `json:"total_requested"`
	TotalFunded       decimal.Decimal   `json:"total_funded"`
	TotalReturns      decimal.Decimal   `json:"total_returns"`
	Outstanding       decimal.Decimal   `json:"outstanding"`
	PlatformFee       decimal.Decimal   `json:"platform_fee"`
	ParticipationFee  decimal.Decimal   `json:"participation_fee"`
	TotalDue          decimal.Decimal   `json:"total_due"`
	DaysOutstanding   int               `json:"days_outstanding"`
	FirstDeploymentAt *time.Time        `json:"first_deployment_at,omitempty"`
	Terms             fees.FinanceTerms `json:"terms"`
}

// ProjectView is the additive rollup of a project's requests.
type ProjectView struct {
	ProjectID        string          `json:"project_id"`
	ProjectName      string          `json:"project_name"`
	ContractorID     string          `json:"contractor_id"`
	ContractorName   string          `json:"contractor_name"`
	TotalRequested   decimal.Decimal `json:"total_requested"`
	TotalFunded      decimal.Decimal `json:"total_funded"`
	TotalReturns     decimal.Decimal `json:"total_returns"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	ParticipationFee decimal.Decimal `json:"participation_fee"`
	TotalDue         decimal.Decimal `json:"total_due"`
	DaysOutstanding  int             `json:"days_outstanding"`
	RequestCount     int             `json:"request_count"`
	Requests         []RequestView   `json:"requests"`
}

// InvestorRequestRow is one purchase request seen from one investor.
// Funded, fees and days are computed on the investor's own deployments.
type InvestorRequestRow struct {
	RequestID        string          `json:"requestId"`
	ProjectID        string          `json:"projectId"`
	ProjectName      string          `json:"projectName"`
	CreatedAt        time.Time       `json:"createdAt"`
	Funded           decimal.Decimal `json:"funded"`
	Returned         decimal.Decimal `json:"returned"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	DaysOutstanding  int             `json:"daysOutstanding"`
	PlatformFee      decimal.Decimal `json:"platformFee"`
	ParticipationFee decimal.Decimal `json:"participationFee"`
	TotalDue         decimal.Decimal `json:"totalDue"`
	Status           string          `json:"status"`
}

// InvestorView is the investor dashboard. Field names follow the dashboard's camelCase contract.
type InvestorView struct {
	InvestorID           string               `json:"investorId"`
	Name                 string               `json:"name"`
	Email                string               `json:"email"`
	Status               string               `json:"status"`
	TotalInvested        decimal.Decimal      `json:"totalInvested"`
	TotalReturns         decimal.Decimal      `json:"totalReturns"`
	CurrentValue         decimal.Decimal      `json:"currentValue"`
	ROI                  float64              `json:"roi"`
	NetROI               float64              `json:"netRoi"`
	ROIConverged         bool                 `json:"roiConverged"`
	NetROIConverged      bool                 `json:"netRoiConverged"`
	ManagementFees       decimal.Decimal      `json:"managementFees"`
	PerformanceFees      decimal.Decimal      `json:"performanceFees"`
	CapitalInflow        decimal.Decimal      `json:"capitalInflow"`
	CapitalReturns       decimal.Decimal      `json:"capitalReturns"`
	NetCapitalReturns    decimal.Decimal      `json:"netCapitalReturns"`
	TotalWithdrawn       decimal.Decimal      `json:"totalWithdrawn"`
	AvailableCapital     decimal.Decimal      `json:"availableCapital"`
	ActiveInvestments    int                  `json:"activeInvestments"`
	CompletedInvestments int                  `json:"completedInvestments"`
	RequestRows          []InvestorRequestRow `json:"requestRows"`
}

// PlatformSummary sums every project figure and counts entities.
type PlatformSummary struct {
	TotalRequested   decimal.Decimal `json:"total_requested"`
	TotalFunded      decimal.Decimal `json:"total_funded"`
	TotalReturns     decimal.Decimal `json:"total_returns"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	ParticipationFee decimal.Decimal `json:"participation_fee"`
	TotalDue         decimal.Decimal `json:"total_due"`
	RequestCount     int             `json:"request_count"`
	InvestorCount    int             `json:"investor_count"`
	ProjectCount     int             `json:"project_count"`
	ContractorCount  int             `json:"contractor_count"`
}

const (
	rowStatusActive    = "active"
	rowStatusCompleted = "completed"
)

// BuildRequestViews computes the fee waterfall for every request.
func BuildRequestViews(res *exposure.Result, ds *ledger.Dataset, now time.Time, defaults fees.FinanceTerms) ([]RequestView, ledger.Diagnostics) {
	var diag ledger.Diagnostics
	contractors := ds.ContractorByID()

	views := make([]RequestView, 0, len(res.Requests))
	for _, re := range res.Requests {
		terms, termDiag := fees.TermsFor(contractors, re.ContractorID, defaults)
		diag = diag.Add(termDiag)
		views = append(views, requestView(re, terms, now))
	}
	return views, diag
}

func requestView(re exposure.RequestExposure, terms fees.FinanceTerms, now time.Time) RequestView {
	f := fees.ForRequest(re.Funded, re.FirstDeploymentAt, now, terms)
	return RequestView{
		RequestID:         re.RequestID,
		ProjectID:         re.ProjectID,
		ContractorID:      re.ContractorID,
		CreatedAt:         re.CreatedAt,
		TotalRequested:    re.RequestedValue,
		TotalFunded:       re.Funded,
		TotalReturns:      re.Returned,
		Outstanding:       re.Outstanding,
		PlatformFee:       f.PlatformFee,
		ParticipationFee:  f.ParticipationFee,
		TotalDue:          f.TotalDue,
		DaysOutstanding:   f.DaysOutstanding,
		FirstDeploymentAt: re.FirstDeploymentAt,
		Terms:             terms,
	}
}

// BuildProjectViews joins project rollups with the summed fees of their requests,
// sorted by descending funded amount. Ties keep rollup order.
func BuildProjectViews(res *exposure.Result, ds *ledger.Dataset, now time.Time, defaults fees.FinanceTerms) ([]ProjectView, ledger.Diagnostics) {
	requestViews, diag := BuildRequestViews(res, ds, now, defaults)
	byRequest := make(map[string]RequestView, len(requestViews))
	for _, rv := range requestViews {
		byRequest[rv.RequestID] = rv
	}

	projects := ds.ProjectByID()
	contractors := ds.ContractorByID()

	views := make([]ProjectView, 0, len(res.Projects))
	for _, pe := range res.Projects {
		rows := make([]RequestView, 0, len(pe.RequestIDs))
		feeRows := make([]fees.RequestFees, 0, len(pe.RequestIDs))
		for _, id := range pe.RequestIDs {
			rv := byRequest[id]
			rows = append(rows, rv)
			feeRows = append(feeRows, fees.RequestFees{
				Funded:           rv.TotalFunded,
				PlatformFee:      rv.PlatformFee,
				ParticipationFee: rv.ParticipationFee,
				TotalDue:         rv.TotalDue,
				DaysOutstanding:  rv.DaysOutstanding,
			})
		}
		total := fees.Sum(feeRows...)

		project := projects[pe.ProjectID]
		contractorID := project.ContractorID
		if contractorID == "" && len(rows) > 0 {
			contractorID = rows[0].ContractorID
		}

		views = append(views, ProjectView{
			ProjectID:        pe.ProjectID,
			ProjectName:      project.Name,
			ContractorID:     contractorID,
			ContractorName:   contractors[contractorID].Name,
			TotalRequested:   pe.RequestedValue,
			TotalFunded:      pe.Funded,
			TotalReturns:     pe.Returned,
			Outstanding:      pe.Outstanding,
			PlatformFee:      total.PlatformFee,
			ParticipationFee: total.ParticipationFee,
			TotalDue:         total.TotalDue,
			DaysOutstanding:  total.DaysOutstanding,
			RequestCount:     pe.RequestCount,
			Requests:         rows,
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].TotalFunded.GreaterThan(views[j].TotalFunded)
	})
	return views, diag
}

// BuildInvestorView composes one investor's rollup, net figures and returns.
func BuildInvestorView(inv ledger.Investor, ie exposure.InvestorExposure, ds *ledger.Dataset, now time.Time, defaults fees.FinanceTerms, policy fees.Policy) (InvestorView, xirr.Returns, ledger.Diagnostics) {
	var diag ledger.Diagnostics

	investorFees := fees.ForInvestor(ie.TotalDeployed, ie.TotalCapitalReturns, policy)
	returns := xirr.GrossAndNet(ie.Transactions, investorFees.TotalFees())
	if !returns.Gross.Converged && returns.Gross.Reason != xirr.ReasonDegenerate {
		diag.SolverFallbacks++
	}
	if !returns.Net.Converged && returns.Net.Reason != xirr.ReasonDegenerate {
		diag.SolverFallbacks++
	}

	requests := ds.RequestByID()
	projects := ds.ProjectByID()
	contractors := ds.ContractorByID()

	view := InvestorView{
		InvestorID:        ie.InvestorID,
		Name:              inv.Name,
		Email:             inv.Email,
		Status:            inv.Status,
		TotalInvested:     ie.TotalDeployed,
		TotalReturns:      ie.TotalCapitalReturns,
		CurrentValue:      ie.Outstanding,
		ROI:               returns.Gross.Percent(),
		NetROI:            returns.Net.Percent(),
		ROIConverged:      returns.Gross.Converged,
		NetROIConverged:   returns.Net.Converged,
		ManagementFees:    investorFees.ManagementFee,
		PerformanceFees:   investorFees.PerformanceFee,
		CapitalInflow:     ie.TotalCapitalInflow,
		CapitalReturns:    ie.TotalCapitalReturns,
		NetCapitalReturns: investorFees.NetCapitalReturns,
		TotalWithdrawn:    ie.TotalWithdrawn,
		AvailableCapital:  ie.AvailableCapital,
		RequestRows:       make([]InvestorRequestRow, 0, len(ie.Requests)),
	}
	if view.InvestorID == "" {
		view.InvestorID = inv.ID
	}

	for _, ir := range ie.Requests {
		pr := requests[ir.RequestID]
		terms, termDiag := fees.TermsFor(contractors, pr.ContractorID, defaults)
		diag = diag.Add(termDiag)
		f := fees.ForRequest(ir.Funded, ir.FirstDeploymentAt, now, terms)

		status := rowStatusCompleted
		if ir.Outstanding.IsPositive() {
			status = rowStatusActive
			view.ActiveInvestments++
		} else if ir.Funded.IsPositive() {
			view.CompletedInvestments++
		}

		view.RequestRows = append(view.RequestRows, InvestorRequestRow{
			RequestID:        ir.RequestID,
			ProjectID:        pr.ProjectID,
			ProjectName:      projects[pr.ProjectID].Name,
			CreatedAt:        pr.CreatedAt,
			Funded:           ir.Funded,
			Returned:         ir.Returned,
			Outstanding:      ir.Outstanding,
			DaysOutstanding:  f.DaysOutstanding,
			PlatformFee:      f.PlatformFee,
			ParticipationFee: f.ParticipationFee,
			TotalDue:         f.TotalDue,
			Status:           status,
		})
	}

	sort.SliceStable(view.RequestRows, func(i, j int) bool {
		return view.RequestRows[i].CreatedAt.After(view.RequestRows[j].CreatedAt)
	})

	return view, returns, diag
}

// BuildPlatformSummary sums the project views.
// Cardinalities come from the dataset's entity lists.
func BuildPlatformSummary(projects []ProjectView, ds *ledger.Dataset) PlatformSummary {
	sum := PlatformSummary{
		TotalRequested:   decimal.Zero,
		TotalFunded:      decimal.Zero,
		TotalReturns:     decimal.Zero,
		Outstanding:      decimal.Zero,
		PlatformFee:      decimal.Zero,
		ParticipationFee: decimal.Zero,
		TotalDue:         decimal.Zero,
		InvestorCount:    len(ds.Investors),
		ProjectCount:     len(ds.Projects),
		ContractorCount:  len(ds.Contractors),
	}
	for _, p := range projects {
		sum.TotalRequested = sum.TotalRequested.Add(p.TotalRequested)
		sum.TotalFunded = sum.TotalFunded.Add(p.TotalFunded)
		sum.TotalReturns = sum.TotalReturns.Add(p.TotalReturns)
		sum.Outstanding = sum.Outstanding.Add(p.Outstanding)
		sum.PlatformFee = sum.PlatformFee.Add(p.PlatformFee)
		sum.ParticipationFee = sum.ParticipationFee.Add(p.ParticipationFee)
		sum.TotalDue = sum.TotalDue.Add(p.TotalDue)
		sum.RequestCount += p.RequestCount
	}
	return sum
}
