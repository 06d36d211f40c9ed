package xirr

import (
	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/modules/ledger"
)

// Returns pairs the gross solve with the net-of-fees solve over the same base flows.
type Returns struct {
	Gross Result `json:"gross"`
	Net   Result `json:"net"`
}

// InvestorFlows builds the base cash-flow set from completed deployments (negative)
// and returns (positive). Inflows and withdrawals move money between the investor
// and the platform, not into the financed requests, and are left out.
func InvestorFlows(txs []ledger.CapitalTransaction) []CashflowPoint {
	points := make([]CashflowPoint, 0, len(txs))
	for _, tx := range ledger.Completed(txs) {
		amount := tx.Amount.InexactFloat64()
		switch tx.Type {
		case ledger.TypeDeployment:
			points = append(points, CashflowPoint{Date: tx.CreatedAt, Amount: -amount})
		case ledger.TypeReturn:
			points = append(points, CashflowPoint{Date: tx.CreatedAt, Amount: amount})
		}
	}
	return points
}

// WithFees returns a copy of base with one synthetic point charging fee on the latest
// flow date. No point is added when fee is not positive or base is empty.
func WithFees(base []CashflowPoint, fee decimal.Decimal) []CashflowPoint {
	out := make([]CashflowPoint, len(base), len(base)+1)
	copy(out, base)
	if !fee.IsPositive() || len(base) == 0 {
		return out
	}

	latest := base[0].Date
	for _, p := range base[1:] {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return append(out, CashflowPoint{Date: latest, Amount: -fee.InexactFloat64()})
}

// GrossAndNet solves the base flows with and without the investor fees.
func GrossAndNet(txs []ledger.CapitalTransaction, fee decimal.Decimal) Returns {
	base := InvestorFlows(txs)
	return Returns{
		Gross: Solve(base),
		Net:   Solve(WithFees(base, fee)),
	}
}
