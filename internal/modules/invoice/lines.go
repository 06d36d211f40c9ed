// Package invoice builds the monetary line items of a purchase-request invoice.
// Rendering happens elsewhere; this package only guarantees that the platform fee
// on the invoice is the same figure the analytics views report.
package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/modules/fees"
)

// LineKind identifies an invoice line.
type LineKind string

const (
	KindMaterials   LineKind = "materials"
	KindPlatformFee LineKind = "platform_fee"
)

// Line is one invoice line item.
type Line struct {
	Kind        LineKind        `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice is the ordered line items plus their total.
type Invoice struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Lines builds the materials and platform-fee lines for a material subtotal.
// The fee uses fees.PlatformFee so it matches the engine to the cent.
func Lines(materialSubtotal decimal.Decimal, terms fees.FinanceTerms) Invoice {
	if materialSubtotal.IsNegative() {
		materialSubtotal = decimal.Zero
	}
	platformFee := fees.PlatformFee(materialSubtotal, terms).Round(2)
	subtotal := materialSubtotal.Round(2)

	lines := []Line{
		{Kind: KindMaterials, Description: "Materials subtotal", Amount: subtotal},
		{Kind: KindPlatformFee, Description: "Platform fee (" + terms.PlatformFeeRate.Shift(2).String() + "%, capped at " + terms.PlatformFeeCap.StringFixed(2) + ")", Amount: platformFee},
	}

	return Invoice{
		Lines: lines,
		Total: subtotal.Add(platformFee),
	}
}
