// Package fees implements the fee waterfall: the platform and participation fees a
// contractor owes on deployed capital, and the management and performance fees
// charged against an investor's realized returns.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/modules/ledger"
)

// FinanceTerms are a contractor's resolved finance terms. Rates are fractions.
type FinanceTerms struct {
	PlatformFeeRate           decimal.Decimal `json:"platform_fee_rate"`
	PlatformFeeCap            decimal.Decimal `json:"platform_fee_cap"`
	ParticipationFeeRateDaily decimal.Decimal `json:"participation_fee_rate_daily"`
}

// DefaultTerms returns the platform defaults applied when a contractor has none configured.
func DefaultTerms() FinanceTerms {
	return FinanceTerms{
		PlatformFeeRate:           decimal.RequireFromString("0.0025"),
		PlatformFeeCap:            decimal.NewFromInt(25000),
		ParticipationFeeRateDaily: decimal.RequireFromString("0.001"),
	}
}

// ResolveTerms fills unset fields of a stored terms row from defaults.
// Negative values are coerced to zero and counted.
func ResolveTerms(row ledger.FinanceTermsRow, defaults FinanceTerms) (FinanceTerms, ledger.Diagnostics) {
	var diag ledger.Diagnostics

	resolve := func(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
		if v == nil {
			return fallback
		}
		if v.IsNegative() {
			diag.CoercedTerms++
			return decimal.Zero
		}
		return *v
	}

	return FinanceTerms{
		PlatformFeeRate:           resolve(row.PlatformFeeRate, defaults.PlatformFeeRate),
		PlatformFeeCap:            resolve(row.PlatformFeeCap, defaults.PlatformFeeCap),
		ParticipationFeeRateDaily: resolve(row.ParticipationFeeRateDaily, defaults.ParticipationFeeRateDaily),
	}, diag
}

// TermsFor resolves the terms of a contractor by ID, falling back to defaults for an
// unknown contractor.
func TermsFor(contractors map[string]ledger.Contractor, contractorID string, defaults FinanceTerms) (FinanceTerms, ledger.Diagnostics) {
	c, ok := contractors[contractorID]
	if !ok {
		return defaults, ledger.Diagnostics{}
	}
	return ResolveTerms(c.Terms, defaults)
}

// Policy holds the investor-side fee parameters.
type Policy struct {
	ManagementFeeRate  decimal.Decimal `json:"management_fee_rate"`
	HurdleRate         decimal.Decimal `json:"hurdle_rate"`
	PerformanceFeeRate decimal.Decimal `json:"performance_fee_rate"`
}

// DefaultPolicy is a flat 2% management fee and 20% carry above a 12% hurdle.
func DefaultPolicy() Policy {
	return Policy{
		ManagementFeeRate:  decimal.RequireFromString("0.02"),
		HurdleRate:         decimal.RequireFromString("0.12"),
		PerformanceFeeRate: decimal.RequireFromString("0.20"),
	}
}
