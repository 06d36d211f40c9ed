// Package xirr computes money-weighted annualized returns over irregularly dated
// cash flows with a bounded Newton-Raphson iteration.
package xirr

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	// InitialGuess is the starting rate for every solve
	InitialGuess = 0.10
	// MaxIterations bounds the solver's running time
	MaxIterations = 100
	// Tolerance is the |NPV| below which the rate is accepted
	Tolerance = 1e-6
	// MinDerivative is the |dNPV/dr| below which iteration stops
	MinDerivative = 1e-10
	// MinRate keeps (1+r) positive so fractional exponents stay defined
	MinRate = -0.9999
	// FallbackTolerance is the |NPV| relative to Σ|amount| above which a stopped
	// iteration is considered nowhere near a root
	FallbackTolerance = 1e-6

	daysPerYear = 365.0
)

// Reason says why the solver stopped.
type Reason string

const (
	ReasonConverged      Reason = "converged"
	ReasonFlatDerivative Reason = "flat_derivative"
	ReasonMaxIterations  Reason = "max_iterations"
	ReasonNonFinite      Reason = "non_finite"
	ReasonDegenerate     Reason = "degenerate"
	ReasonNoRoot         Reason = "no_root"
)

// CashflowPoint is one signed, dated flow from the investor's point of view:
// negative when capital leaves the investor, positive when it comes back.
type CashflowPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Result is the outcome of one solve. Rate is a fraction; it is always finite.
// When Converged is false Rate is the best estimate reached, or the fallback
// (MinRate for losing flows, 0 for gaining ones) when no root is in reach.
type Result struct {
	Rate       float64 `json:"rate"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Reason     Reason  `json:"reason"`
}

// Percent returns the rate as a percentage.
func (r Result) Percent() float64 {
	return r.Rate * 100
}

// Solve finds r such that Σ amount_i / (1+r)^years_i = 0, where years_i is the actual
// day count from the earliest flow divided by 365.
//
// Fewer than two flows, or flows that are all one sign, have no rate: the result is 0
// and the loop is never entered.
//
// Flows that net to one sign on every date have no root either (a fee larger than the
// return it is charged against does this). Those report ReasonNoRoot without iterating:
// MinRate when the netted flows are losses, 0 otherwise. A stopped iteration whose NPV
// is still clearly negative also reports MinRate instead of its runaway estimate.
func Solve(points []CashflowPoint) Result {
	if degenerate(points) {
		return Result{Reason: ReasonDegenerate}
	}

	amounts, years := vectors(points)
	if sign := nettedSign(amounts, years); sign != 0 {
		return Result{Rate: fallbackRate(sign), Reason: ReasonNoRoot}
	}

	scale := floats.Norm(amounts, 1)
	discount := make([]float64, len(points))
	slope := make([]float64, len(points))
	evaluate := func(rate float64) (float64, float64) {
		base := 1 + rate
		for j, y := range years {
			discount[j] = math.Pow(base, -y)
			slope[j] = -y * math.Pow(base, -y-1)
		}
		return floats.Dot(amounts, discount), floats.Dot(amounts, slope)
	}

	rate := InitialGuess
	for i := 1; i <= MaxIterations; i++ {
		npv, dnpv := evaluate(rate)

		if !finite(npv) || !finite(dnpv) {
			return Result{Iterations: i, Reason: ReasonNonFinite}
		}
		if math.Abs(npv) < Tolerance {
			return Result{Rate: rate, Converged: true, Iterations: i, Reason: ReasonConverged}
		}
		if math.Abs(dnpv) < MinDerivative {
			return settle(Result{Rate: rate, Iterations: i, Reason: ReasonFlatDerivative}, npv, scale)
		}

		rate -= npv / dnpv
		if rate < MinRate {
			rate = MinRate
		}
		if !finite(rate) {
			return Result{Iterations: i, Reason: ReasonNonFinite}
		}
	}

	npv, _ := evaluate(rate)
	if !finite(npv) {
		return Result{Iterations: MaxIterations, Reason: ReasonNonFinite}
	}
	return settle(Result{Rate: rate, Iterations: MaxIterations, Reason: ReasonMaxIterations}, npv, scale)
}

// settle replaces a non-converged estimate whose NPV is still clearly negative: the
// iteration ran past every root (or there is none), so the floor is reported.
// A positive NPV leaves the estimate below the root and it is kept.
func settle(res Result, npv, scale float64) Result {
	if npv >= -FallbackTolerance*scale {
		return res
	}
	res.Rate = MinRate
	return res
}

// fallbackRate is the floor for flows that lose money at every rate, 0 otherwise.
func fallbackRate(sign float64) float64 {
	if sign < 0 {
		return MinRate
	}
	return 0
}

// nettedSign sums flows per date and reports -1 or +1 when every date nets to that
// sign (zeros aside), 0 when the netted flows still change sign.
// Flows on a single date are left to the loop.
func nettedSign(amounts, years []float64) float64 {
	byDate := make(map[float64]float64, len(years))
	for i, y := range years {
		byDate[y] += amounts[i]
	}
	if len(byDate) < 2 {
		return 0
	}

	var hasNeg, hasPos bool
	for _, v := range byDate {
		switch {
		case v < 0:
			hasNeg = true
		case v > 0:
			hasPos = true
		}
	}
	switch {
	case hasNeg && !hasPos:
		return -1
	case hasPos && !hasNeg:
		return 1
	}
	return 0
}

// Percent solves and returns the annualized rate as a percentage, 0 when no rate exists.
func Percent(points []CashflowPoint) float64 {
	return Solve(points).Percent()
}

func degenerate(points []CashflowPoint) bool {
	if len(points) < 2 {
		return true
	}
	var hasNeg, hasPos bool
	for _, p := range points {
		switch {
		case p.Amount < 0:
			hasNeg = true
		case p.Amount > 0:
			hasPos = true
		}
	}
	return !(hasNeg && hasPos)
}

// vectors splits points into amounts and year fractions from the earliest date.
// Input order does not matter.
func vectors(points []CashflowPoint) ([]float64, []float64) {
	earliest := points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(earliest) {
			earliest = p.Date
		}
	}

	amounts := make([]float64, len(points))
	years := make([]float64, len(points))
	for i, p := range points {
		amounts[i] = p.Amount
		days := math.Floor(p.Date.Sub(earliest).Hours() / 24)
		years[i] = days / daysPerYear
	}
	return amounts, years
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
