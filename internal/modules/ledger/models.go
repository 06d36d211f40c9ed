// Package ledger defines the capital transaction log and the typed records every
// aggregation in the engine consumes.
//
// Rows arrive from the ledger database loosely typed; they are validated once at the
// ingestion boundary (see ingest.go) and everything downstream works on the immutable
// records declared here.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a money movement in the ledger.
type TransactionType string

const (
	// TypeInflow is capital contributed by an investor to the platform
	TypeInflow TransactionType = "inflow"
	// TypeDeployment is capital sent out to fund a purchase request
	TypeDeployment TransactionType = "deployment"
	// TypeReturn is capital coming back from a contractor
	TypeReturn TransactionType = "return"
	// TypeWithdrawal is capital paid out of the platform to an investor
	TypeWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeInflow, TypeDeployment, TypeReturn, TypeWithdrawal:
		return true
	}
	return false
}

// TransactionStatus is the workflow state of a transaction row.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRejected  TransactionStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// CapitalTransaction is one immutable ledger entry.
// Nullable foreign keys are pointers: platform-level rows may carry no investor,
// and only deployments/returns are expected to reference a purchase request.
type CapitalTransaction struct {
	ID                string            `json:"id"`
	InvestorID        *string           `json:"investor_id,omitempty"`
	ProjectID         *string           `json:"project_id,omitempty"`
	ContractorID      *string           `json:"contractor_id,omitempty"`
	PurchaseRequestID *string           `json:"purchase_request_id,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Type              TransactionType   `json:"transaction_type"`
	Status            TransactionStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	Description       string            `json:"description,omitempty"`
	ReferenceNumber   string            `json:"reference_number,omitempty"`
}

// IsCompleted reports whether the row participates in aggregates.
func (t CapitalTransaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// PurchaseRequest is the unit of material funding.
type PurchaseRequest struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	ContractorID string    `json:"contractor_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// LineItem is one material line of a purchase request.
type LineItem struct {
	PurchaseRequestID string          `json:"purchase_request_id"`
	RequestedQty      decimal.Decimal `json:"requested_qty"`
	UnitRate          decimal.Decimal `json:"unit_rate"`
}

// Value returns requested quantity times unit rate.
func (li LineItem) Value() decimal.Decimal {
	return li.RequestedQty.Mul(li.UnitRate)
}

// Investor is a capital provider. Status gates opportunity visibility elsewhere;
// an inactive investor's history still counts in every aggregate.
type Investor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Project is a construction project; only its name is used, for presentation.
type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContractorID string `json:"contractor_id"`
}

// FinanceTermsRow holds a contractor's configured finance terms as stored.
// Nil fields are unset and resolve to platform defaults.
type FinanceTermsRow struct {
	PlatformFeeRate           *decimal.Decimal
	PlatformFeeCap            *decimal.Decimal
	ParticipationFeeRateDaily *decimal.Decimal
}

// Contractor is an SME contractor and the owner of finance terms.
type Contractor struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Terms FinanceTermsRow `json:"-"`
}

// Dataset is everything one computation needs, fetched in a single pass.
type Dataset struct {
	Transactions []CapitalTransaction
	Requests     []PurchaseRequest
	LineItems    []LineItem
	Investors    []Investor
	Projects     []Project
	Contractors  []Contractor
}

// RequestByID indexes purchase requests by ID.
func (d *Dataset) RequestByID() map[string]PurchaseRequest {
	out := make(map[string]PurchaseRequest, len(d.Requests))
	for _, pr := range d.Requests {
		out[pr.ID] = pr
	}
	return out
}

// ContractorByID indexes contractors by ID.
func (d *Dataset) ContractorByID() map[string]Contractor {
	out := make(map[string]Contractor, len(d.Contractors))
	for _, c := range d.Contractors {
		out[c.ID] = c
	}
	return out
}

// ProjectByID indexes projects by ID.
func (d *Dataset) ProjectByID() map[string]Project {
	out := make(map[string]Project, len(d.Projects))
	for _, p := range d.Projects {
		out[p.ID] = p
	}
	return out
}

// FindInvestor returns the investor with the given ID.
func (d *Dataset) FindInvestor(id string) (Investor, bool) {
	for _, inv := range d.Investors {
		if inv.ID == id {
			return inv, true
		}
	}
	return Investor{}, false
}
