package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is a capital_transactions row exactly as the query layer returns it.
// Amount and CreatedAt are left untyped: the columns hold whatever the upstream
// workflow wrote.
type RawTransaction struct {
	ID                string
	InvestorID        *string
	ProjectID         *string
	ContractorID      *string
	PurchaseRequestID *string
	Amount            interface{}
	Type              string
	Status            string
	CreatedAt         interface{}
	Description       *string
	ReferenceNumber   *string
}

// RawLineItem is a purchase_request_items row before validation.
type RawLineItem struct {
	PurchaseRequestID string
	RequestedQty      interface{}
	UnitRate          interface{}
}

// NormalizeTransaction validates a raw row into a CapitalTransaction.
//
// Policy:
//   - non-numeric or negative amount: coerced to 0, counted
//   - unknown transaction type: row dropped (ok=false), counted
//   - unknown status: row kept with its status as-is; it is not completed and so never
//     enters a sum, counted
//   - unparseable created_at: row dropped (ok=false), counted
//
// Returns:
//   - CapitalTransaction: Typed record (zero value when dropped)
//   - bool: False if the row must not enter the dataset
//   - Diagnostics: Coercions applied to this row
func NormalizeTransaction(raw RawTransaction) (CapitalTransaction, bool, Diagnostics) {
	var diag Diagnostics

	txType := TransactionType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !txType.Valid() {
		diag.UnknownTypes++
		return CapitalTransaction{}, false, diag
	}

	createdAt, ok := ParseTimestamp(raw.CreatedAt)
	if !ok {
		diag.BadTimestamps++
		return CapitalTransaction{}, false, diag
	}

	status := TransactionStatus(strings.ToLower(strings.TrimSpace(raw.Status)))
	if !status.Valid() {
		diag.UnknownStatuses++
	}

	amount, ok := ParseAmount(raw.Amount)
	if !ok {
		diag.CoercedAmounts++
		amount = decimal.Zero
	}

	tx := CapitalTransaction{
		ID:                raw.ID,
		InvestorID:        nonEmpty(raw.InvestorID),
		ProjectID:         nonEmpty(raw.ProjectID),
		ContractorID:      nonEmpty(raw.ContractorID),
		PurchaseRequestID: nonEmpty(raw.PurchaseRequestID),
		Amount:            amount,
		Type:              txType,
		Status:            status,
		CreatedAt:         createdAt,
	}
	if raw.Description != nil {
		tx.Description = *raw.Description
	}
	if raw.ReferenceNumber != nil {
		tx.ReferenceNumber = *raw.ReferenceNumber
	}

	return tx, true, diag
}

// NormalizeLineItem validates a raw line item; bad quantities or rates become 0.
func NormalizeLineItem(raw RawLineItem) (LineItem, Diagnostics) {
	var diag Diagnostics

	qty, ok := ParseAmount(raw.RequestedQty)
	if !ok {
		qty = decimal.Zero
		diag.CoercedLineValues++
	}
	rate, ok := ParseAmount(raw.UnitRate)
	if !ok {
		rate = decimal.Zero
		diag.CoercedLineValues++
	}

	return LineItem{
		PurchaseRequestID: raw.PurchaseRequestID,
		RequestedQty:      qty,
		UnitRate:          rate,
	}, diag
}

// ParseAmount converts a loosely-typed database value into a non-negative decimal.
// It reports false for NULL, non-numeric, non-finite and negative values.
func ParseAmount(v interface{}) (decimal.Decimal, bool) {
	var d decimal.Decimal

	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		d = val
	case int64:
		d = decimal.NewFromInt(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, false
		}
		d = decimal.NewFromFloat(val)
	case []byte:
		return ParseAmount(string(val))
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}

	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// timestampLayouts are the text forms accepted for created_at, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp converts a created_at value into a UTC time.
// Integers and numeric text are Unix seconds; other text must match one of
// timestampLayouts, and text without a zone is read as UTC.
func ParseTimestamp(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case int64:
		return unixUTC(val), true
	case int:
		return unixUTC(int64(val)), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return time.Time{}, false
		}
		return unixUTC(int64(val)), true
	case time.Time:
		return val.UTC(), true
	case []byte:
		return ParseTimestamp(string(val))
	case string:
		text := strings.TrimSpace(val)
		if text == "" {
			return time.Time{}, false
		}
		if sec, err := strconv.ParseInt(text, 10, 64); err == nil {
			return unixUTC(sec), true
		}
		if sec, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(sec) && !math.IsInf(sec, 0) {
			return unixUTC(int64(sec)), true
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
