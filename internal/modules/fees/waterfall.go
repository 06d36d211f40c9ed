package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// RequestFees are the contractor-side charges on one funded amount.
type RequestFees struct {
	Funded           decimal.Decimal `json:"total_funded"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	ParticipationFee decimal.Decimal `json:"participation_fee"`
	TotalDue         decimal.Decimal `json:"total_due"`
	DaysOutstanding  int             `json:"days_outstanding"`
}

// InvestorFees is the investor-side waterfall over lifetime realized returns.
type InvestorFees struct {
	ManagementFee      decimal.Decimal `json:"management_fee"`
	GrossProfit        decimal.Decimal `json:"gross_profit"` // may be negative
	HurdleAmount       decimal.Decimal `json:"hurdle_amount"`
	PerformanceFeeBase decimal.Decimal `json:"performance_fee_base"`
	PerformanceFee     decimal.Decimal `json:"performance_fee"`
	NetCapitalReturns  decimal.Decimal `json:"net_capital_returns"`
}

// TotalFees is management plus performance fee.
func (f InvestorFees) TotalFees() decimal.Decimal {
	return f.ManagementFee.Add(f.PerformanceFee)
}

// DaysOutstanding counts whole days since the first deployment, floored at zero.
// A request that was never funded has zero days outstanding.
func DaysOutstanding(firstDeploymentAt *time.Time, now time.Time) int {
	if firstDeploymentAt == nil {
		return 0
	}
	elapsed := now.Sub(*firstDeploymentAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}

// PlatformFee is min(funded × rate, cap), a one-time charge independent of time.
// Invoice line items use this same function so both figures agree to the cent.
func PlatformFee(funded decimal.Decimal, terms FinanceTerms) decimal.Decimal {
	return decimal.Min(funded.Mul(terms.PlatformFeeRate), terms.PlatformFeeCap)
}

// ParticipationFee is funded × daily rate × days. It accrues linearly and is uncapped.
func ParticipationFee(funded decimal.Decimal, terms FinanceTerms, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return funded.Mul(terms.ParticipationFeeRateDaily).Mul(decimal.NewFromInt(int64(days)))
}

// ForRequest runs the contractor-side waterfall on a funded amount.
// Both fees are charged on funded capital, before any return is netted against it.
func ForRequest(funded decimal.Decimal, firstDeploymentAt *time.Time, now time.Time, terms FinanceTerms) RequestFees {
	days := DaysOutstanding(firstDeploymentAt, now)
	platform := PlatformFee(funded, terms)
	participation := ParticipationFee(funded, terms, days)

	return RequestFees{
		Funded:           funded,
		PlatformFee:      platform,
		ParticipationFee: participation,
		TotalDue:         funded.Add(platform).Add(participation),
		DaysOutstanding:  days,
	}
}

// ForInvestor runs the investor-side waterfall.
//
// The performance fee is computed once over lifetime realized returns, not per deal,
// and is recomputed on every call.
func ForInvestor(totalInvested, totalReturns decimal.Decimal, policy Policy) InvestorFees {
	management := nonNegative(totalInvested.Mul(policy.ManagementFeeRate))
	grossProfit := totalReturns.Sub(totalInvested)
	hurdle := nonNegative(totalInvested.Mul(policy.HurdleRate))
	base := nonNegative(grossProfit.Sub(hurdle))
	performance := nonNegative(base.Mul(policy.PerformanceFeeRate))

	return InvestorFees{
		ManagementFee:      management,
		GrossProfit:        grossProfit,
		HurdleAmount:       hurdle,
		PerformanceFeeBase: base,
		PerformanceFee:     performance,
		NetCapitalReturns:  nonNegative(totalReturns.Sub(management).Sub(performance)),
	}
}

// Sum adds request fee figures for a rollup. DaysOutstanding takes the maximum.
func Sum(items ...RequestFees) RequestFees {
	out := RequestFees{
		Funded:           decimal.Zero,
		PlatformFee:      decimal.Zero,
		ParticipationFee: decimal.Zero,
		TotalDue:         decimal.Zero,
	}
	for _, f := range items {
		out.Funded = out.Funded.Add(f.Funded)
		out.PlatformFee = out.PlatformFee.Add(f.PlatformFee)
		out.ParticipationFee = out.ParticipationFee.Add(f.ParticipationFee)
		out.TotalDue = out.TotalDue.Add(f.TotalDue)
		if f.DaysOutstanding > out.DaysOutstanding {
			out.DaysOutstanding = f.DaysOutstanding
		}
	}
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
