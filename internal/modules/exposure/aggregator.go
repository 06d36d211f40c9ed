// Package exposure folds completed capital transactions into funded, returned and
// outstanding totals per purchase request, rolled up to project and investor.
package exposure

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/modules/ledger"
)

// Input is the aggregator's view of the dataset.
// Projects and Investors are optional: references are only validated against a list
// that is non-empty.
type Input struct {
	Transactions []ledger.CapitalTransaction
	Requests     []ledger.PurchaseRequest
	LineItems    []ledger.LineItem
	Projects     []ledger.Project
	Investors    []ledger.Investor
}

// InputFromDataset adapts a fetched dataset.
func InputFromDataset(ds *ledger.Dataset) Input {
	return Input{
		Transactions: ds.Transactions,
		Requests:     ds.Requests,
		LineItems:    ds.LineItems,
		Projects:     ds.Projects,
		Investors:    ds.Investors,
	}
}

// RequestExposure holds the derived figures of one purchase request.
type RequestExposure struct {
	RequestID         string
	ProjectID         string
	ContractorID      string
	CreatedAt         time.Time
	RequestedValue    decimal.Decimal
	Funded            decimal.Decimal
	Returned          decimal.Decimal
	Outstanding       decimal.Decimal
	FirstDeploymentAt *time.Time // earliest deployment; nil if never funded
}

// ProjectExposure is the additive rollup of a project's requests.
type ProjectExposure struct {
	ProjectID         string
	RequestIDs        []string
	RequestCount      int
	RequestedValue    decimal.Decimal
	Funded            decimal.Decimal
	Returned          decimal.Decimal
	Outstanding       decimal.Decimal
	FirstDeploymentAt *time.Time
}

// InvestorRequest is one investor's own exposure to one purchase request.
type InvestorRequest struct {
	RequestID         string
	Funded            decimal.Decimal
	Returned          decimal.Decimal
	Outstanding       decimal.Decimal
	FirstDeploymentAt *time.Time
}

// InvestorExposure is the rollup of one investor's transactions.
type InvestorExposure struct {
	InvestorID          string
	TotalDeployed       decimal.Decimal
	TotalCapitalInflow  decimal.Decimal
	TotalCapitalReturns decimal.Decimal
	TotalWithdrawn      decimal.Decimal
	Outstanding         decimal.Decimal // max(deployed - returns, 0)
	AvailableCapital    decimal.Decimal // max(inflow + returns - deployed - withdrawn, 0)
	Requests            []InvestorRequest
	Transactions        []ledger.CapitalTransaction // the investor's completed rows, input order
}

// Result is the output of one aggregation. Slices are in deterministic order:
// requests follow the input request list, projects follow first appearance among
// requests, investors follow the input investor list.
type Result struct {
	Requests  []RequestExposure
	Projects  []ProjectExposure
	Investors []InvestorExposure

	requestIdx  map[string]int
	projectIdx  map[string]int
	investorIdx map[string]int
}

// Request looks up a request's exposure.
func (r *Result) Request(id string) (RequestExposure, bool) {
	i, ok := r.requestIdx[id]
	if !ok {
		return RequestExposure{}, false
	}
	return r.Requests[i], true
}

// Project looks up a project's exposure.
func (r *Result) Project(id string) (ProjectExposure, bool) {
	i, ok := r.projectIdx[id]
	if !ok {
		return ProjectExposure{}, false
	}
	return r.Projects[i], true
}

// Investor looks up an investor's exposure.
func (r *Result) Investor(id string) (InvestorExposure, bool) {
	i, ok := r.investorIdx[id]
	if !ok {
		return InvestorExposure{}, false
	}
	return r.Investors[i], true
}

// Aggregate computes exposures. It is pure: the input is never mutated and the same
// input always yields the same result. Rows that are not completed are ignored.
// References to unknown requests, projects or investors are skipped and counted.
func Aggregate(in Input) (*Result, ledger.Diagnostics) {
	var diag ledger.Diagnostics
	completed := ledger.Completed(in.Transactions)

	res := &Result{
		requestIdx:  make(map[string]int, len(in.Requests)),
		projectIdx:  make(map[string]int),
		investorIdx: make(map[string]int),
	}

	// 1. requested value per request
	requested := make(map[string]decimal.Decimal)
	for _, li := range in.LineItems {
		requested[li.PurchaseRequestID] = sumOrZero(requested, li.PurchaseRequestID).Add(li.Value())
	}

	for _, pr := range in.Requests {
		if _, dup := res.requestIdx[pr.ID]; dup {
			continue
		}
		res.requestIdx[pr.ID] = len(res.Requests)
		res.Requests = append(res.Requests, RequestExposure{
			RequestID:      pr.ID,
			ProjectID:      pr.ProjectID,
			ContractorID:   pr.ContractorID,
			CreatedAt:      pr.CreatedAt,
			RequestedValue: sumOrZero(requested, pr.ID),
			Funded:         decimal.Zero,
			Returned:       decimal.Zero,
			Outstanding:    decimal.Zero,
		})
	}

	// 2-3. funded and returned per request
	for _, tx := range completed {
		if tx.Type != ledger.TypeDeployment && tx.Type != ledger.TypeReturn {
			continue
		}
		reqID, ok := ledger.ByPurchaseRequest(tx)
		if !ok {
			diag.Unattributed++
			continue
		}
		i, ok := res.requestIdx[reqID]
		if !ok {
			diag.MissingRequests++
			continue
		}
		re := &res.Requests[i]
		if tx.Type == ledger.TypeDeployment {
			re.Funded = re.Funded.Add(tx.Amount)
			re.FirstDeploymentAt = earliest(re.FirstDeploymentAt, tx.CreatedAt)
		} else {
			re.Returned = re.Returned.Add(tx.Amount)
		}
	}

	// 4. outstanding, clamped
	for i := range res.Requests {
		res.Requests[i].Outstanding = clampedDiff(res.Requests[i].Funded, res.Requests[i].Returned)
	}

	// 5. project rollup
	knownProjects := make(map[string]bool, len(in.Projects))
	for _, p := range in.Projects {
		knownProjects[p.ID] = true
	}
	for _, re := range res.Requests {
		if len(knownProjects) > 0 && !knownProjects[re.ProjectID] {
			diag.MissingProjects++
			continue
		}
		i, ok := res.projectIdx[re.ProjectID]
		if !ok {
			i = len(res.Projects)
			res.projectIdx[re.ProjectID] = i
			res.Projects = append(res.Projects, ProjectExposure{
				ProjectID:      re.ProjectID,
				RequestedValue: decimal.Zero,
				Funded:         decimal.Zero,
				Returned:       decimal.Zero,
				Outstanding:    decimal.Zero,
			})
		}
		pe := &res.Projects[i]
		pe.RequestIDs = append(pe.RequestIDs, re.RequestID)
		pe.RequestCount++
		pe.RequestedValue = pe.RequestedValue.Add(re.RequestedValue)
		pe.Funded = pe.Funded.Add(re.Funded)
		pe.Returned = pe.Returned.Add(re.Returned)
		pe.Outstanding = pe.Outstanding.Add(re.Outstanding)
		if re.FirstDeploymentAt != nil {
			pe.FirstDeploymentAt = earliest(pe.FirstDeploymentAt, *re.FirstDeploymentAt)
		}
	}

	// 6. investor rollup
	investors, investorDiag := aggregateInvestors(completed, in, res.requestIdx)
	diag = diag.Add(investorDiag)
	for i, inv := range investors {
		res.investorIdx[inv.InvestorID] = i
	}
	res.Investors = investors

	return res, diag
}

func aggregateInvestors(completed []ledger.CapitalTransaction, in Input, requestIdx map[string]int) ([]InvestorExposure, ledger.Diagnostics) {
	var diag ledger.Diagnostics

	byInvestor := ledger.GroupBy(completed, ledger.ByInvestor)

	order := make([]string, 0, len(in.Investors))
	known := make(map[string]bool, len(in.Investors))
	for _, inv := range in.Investors {
		if known[inv.ID] {
			continue
		}
		known[inv.ID] = true
		order = append(order, inv.ID)
	}

	// Without an investor list every investor seen in the ledger is reported
	seen := make(map[string]bool)
	for _, tx := range completed {
		id, ok := ledger.ByInvestor(tx)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if len(known) == 0 {
			order = append(order, id)
		} else if !known[id] {
			diag.MissingInvestors += len(byInvestor[id])
		}
	}

	out := make([]InvestorExposure, 0, len(order))
	for _, id := range order {
		out = append(out, investorExposure(id, byInvestor[id], requestIdx))
	}
	return out, diag
}

func investorExposure(id string, txs []ledger.CapitalTransaction, requestIdx map[string]int) InvestorExposure {
	ie := InvestorExposure{
		InvestorID:          id,
		TotalDeployed:       decimal.Zero,
		TotalCapitalInflow:  decimal.Zero,
		TotalCapitalReturns: decimal.Zero,
		TotalWithdrawn:      decimal.Zero,
		Requests:            make([]InvestorRequest, 0),
		Transactions:        txs,
	}

	reqPos := make(map[string]int)
	for _, tx := range txs {
		switch tx.Type {
		case ledger.TypeInflow:
			ie.TotalCapitalInflow = ie.TotalCapitalInflow.Add(tx.Amount)
		case ledger.TypeWithdrawal:
			ie.TotalWithdrawn = ie.TotalWithdrawn.Add(tx.Amount)
		case ledger.TypeDeployment:
			ie.TotalDeployed = ie.TotalDeployed.Add(tx.Amount)
		case ledger.TypeReturn:
			ie.TotalCapitalReturns = ie.TotalCapitalReturns.Add(tx.Amount)
		}

		if tx.Type != ledger.TypeDeployment && tx.Type != ledger.TypeReturn {
			continue
		}
		reqID, ok := ledger.ByPurchaseRequest(tx)
		if !ok {
			continue
		}
		if _, known := requestIdx[reqID]; !known {
			continue
		}
		i, ok := reqPos[reqID]
		if !ok {
			i = len(ie.Requests)
			reqPos[reqID] = i
			ie.Requests = append(ie.Requests, InvestorRequest{
				RequestID: reqID,
				Funded:    decimal.Zero,
				Returned:  decimal.Zero,
			})
		}
		ir := &ie.Requests[i]
		if tx.Type == ledger.TypeDeployment {
			ir.Funded = ir.Funded.Add(tx.Amount)
			ir.FirstDeploymentAt = earliest(ir.FirstDeploymentAt, tx.CreatedAt)
		} else {
			ir.Returned = ir.Returned.Add(tx.Amount)
		}
	}

	for i := range ie.Requests {
		ie.Requests[i].Outstanding = clampedDiff(ie.Requests[i].Funded, ie.Requests[i].Returned)
	}
	ie.Outstanding = clampedDiff(ie.TotalDeployed, ie.TotalCapitalReturns)
	ie.AvailableCapital = clampedDiff(
		ie.TotalCapitalInflow.Add(ie.TotalCapitalReturns),
		ie.TotalDeployed.Add(ie.TotalWithdrawn),
	)

	return ie
}

// clampedDiff returns max(a - b, 0). Over-return is a workflow anomaly, never a negative liability.
func clampedDiff(a, b decimal.Decimal) decimal.Decimal {
	d := a.Sub(b)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func earliest(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.Before(*current) {
		c := candidate
		return &c
	}
	return current
}

func sumOrZero(m map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.Zero
}
