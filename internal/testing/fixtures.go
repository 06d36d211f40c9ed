package testing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteledger/capital/internal/database"
	"github.com/siteledger/capital/internal/modules/ledger"
)

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr is Dec returning a pointer, for optional finance terms.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// Tx builds a completed transaction. Empty IDs are left nil.
func Tx(id string, txType ledger.TransactionType, amount string, at time.Time, investorID, requestID string) ledger.CapitalTransaction {
	tx := ledger.CapitalTransaction{
		ID:        id,
		Amount:    Dec(amount),
		Type:      txType,
		Status:    ledger.StatusCompleted,
		CreatedAt: at,
	}
	if investorID != "" {
		tx.InvestorID = StrPtr(investorID)
	}
	if requestID != "" {
		tx.PurchaseRequestID = StrPtr(requestID)
	}
	return tx
}

// WithStatus returns tx with its status replaced.
func WithStatus(tx ledger.CapitalTransaction, status ledger.TransactionStatus) ledger.CapitalTransaction {
	tx.Status = status
	return tx
}

// NewEndToEndDataset is a single investor funding a single request in full.
//
// Deployment of 1,000,000 on 2024-01-01, return of 1,150,000 on 2024-07-01,
// contractor on the documented default terms.
func NewEndToEndDataset() *ledger.Dataset {
	return &ledger.Dataset{
		Transactions: []ledger.CapitalTransaction{
			Tx("tx-in-1", ledger.TypeInflow, "1000000", Date(2023, time.December, 28), "inv-1", ""),
			Tx("tx-dep-1", ledger.TypeDeployment, "1000000", Date(2024, time.January, 1), "inv-1", "pr-1"),
			Tx("tx-ret-1", ledger.TypeReturn, "1150000", Date(2024, time.July, 1), "inv-1", "pr-1"),
		},
		Requests: []ledger.PurchaseRequest{
			{ID: "pr-1", ProjectID: "proj-1", ContractorID: "ctr-1", Status: "funded", CreatedAt: Date(2023, time.December, 20)},
		},
		LineItems: []ledger.LineItem{
			{PurchaseRequestID: "pr-1", RequestedQty: Dec("1000"), UnitRate: Dec("1000")},
		},
		Investors: []ledger.Investor{
			{ID: "inv-1", Name: "Asha Menon", Email: "asha@example.com", Status: "active"},
		},
		Projects: []ledger.Project{
			{ID: "proj-1", Name: "Riverside Towers", ContractorID: "ctr-1"},
		},
		Contractors: []ledger.Contractor{
			{
				ID:   "ctr-1",
				Name: "Kaveri Builders",
				Terms: ledger.FinanceTermsRow{
					PlatformFeeRate:           DecPtr("0.0025"),
					PlatformFeeCap:            DecPtr("25000"),
					ParticipationFeeRateDaily: DecPtr("0.001"),
				},
			},
		},
	}
}

// NewPortfolioDataset has two investors across two projects and three requests,
// with non-completed rows mixed in. Contractor ctr-2 has no terms configured.
func NewPortfolioDataset() *ledger.Dataset {
	return &ledger.Dataset{
		Transactions: []ledger.CapitalTransaction{
			Tx("t1", ledger.TypeInflow, "500000", Date(2024, time.January, 2), "inv-1", ""),
			Tx("t2", ledger.TypeInflow, "300000", Date(2024, time.January, 3), "inv-2", ""),
			Tx("t3", ledger.TypeDeployment, "200000", Date(2024, time.January, 10), "inv-1", "pr-a"),
			Tx("t4", ledger.TypeDeployment, "100000", Date(2024, time.January, 5), "inv-2", "pr-a"),
			Tx("t5", ledger.TypeDeployment, "250000", Date(2024, time.February, 1), "inv-1", "pr-b"),
			Tx("t6", ledger.TypeDeployment, "150000", Date(2024, time.March, 1), "inv-2", "pr-c"),
			Tx("t7", ledger.TypeReturn, "320000", Date(2024, time.April, 10), "inv-1", "pr-a"),
			Tx("t8", ledger.TypeWithdrawal, "50000", Date(2024, time.May, 1), "inv-1", ""),
			WithStatus(Tx("t9", ledger.TypeDeployment, "999999", Date(2024, time.February, 15), "inv-1", "pr-b"), ledger.StatusPending),
			WithStatus(Tx("t10", ledger.TypeReturn, "777777", Date(2024, time.March, 15), "inv-2", "pr-c"), ledger.StatusFailed),
			WithStatus(Tx("t11", ledger.TypeInflow, "123456", Date(2024, time.March, 20), "inv-2", ""), ledger.StatusRejected),
		},
		Requests: []ledger.PurchaseRequest{
			{ID: "pr-a", ProjectID: "proj-1", ContractorID: "ctr-1", Status: "funded", CreatedAt: Date(2024, time.January, 1)},
			{ID: "pr-b", ProjectID: "proj-1", ContractorID: "ctr-1", Status: "funded", CreatedAt: Date(2024, time.January, 20)},
			{ID: "pr-c", ProjectID: "proj-2", ContractorID: "ctr-2", Status: "funded", CreatedAt: Date(2024, time.February, 20)},
		},
		LineItems: []ledger.LineItem{
			{PurchaseRequestID: "pr-a", RequestedQty: Dec("300"), UnitRate: Dec("1000")},
			{PurchaseRequestID: "pr-b", RequestedQty: Dec("100"), UnitRate: Dec("2000")},
			{PurchaseRequestID: "pr-b", RequestedQty: Dec("50"), UnitRate: Dec("1000")},
			{PurchaseRequestID: "pr-c", RequestedQty: Dec("150"), UnitRate: Dec("1000")},
		},
		Investors: []ledger.Investor{
			{ID: "inv-1", Name: "Asha Menon", Email: "asha@example.com", Status: "active"},
			{ID: "inv-2", Name: "Ravi Iyer", Email: "ravi@example.com", Status: "inactive"},
		},
		Projects: []ledger.Project{
			{ID: "proj-1", Name: "Riverside Towers", ContractorID: "ctr-1"},
			{ID: "proj-2", Name: "Harbour Depot", ContractorID: "ctr-2"},
		},
		Contractors: []ledger.Contractor{
			{
				ID:   "ctr-1",
				Name: "Kaveri Builders",
				Terms: ledger.FinanceTermsRow{
					PlatformFeeRate:           DecPtr("0.01"),
					PlatformFeeCap:            DecPtr("3000"),
					ParticipationFeeRateDaily: DecPtr("0.0005"),
				},
			},
			{ID: "ctr-2", Name: "Deccan Infra"},
		},
	}
}

// SeedLedger writes a dataset into a migrated ledger database.
func SeedLedger(t *testing.T, conn *sql.DB, ds *ledger.Dataset) {
	t.Helper()

	err := database.WithTransaction(conn, func(tx *sql.Tx) error {
		for _, inv := range ds.Investors {
			if _, err := tx.Exec(`INSERT INTO investors (id, name, email, status) VALUES (?, ?, ?, ?)`,
				inv.ID, inv.Name, inv.Email, inv.Status); err != nil {
				return err
			}
		}
		for _, c := range ds.Contractors {
			if _, err := tx.Exec(`INSERT INTO contractors (id, name, platform_fee_rate, platform_fee_cap, participation_fee_rate_daily) VALUES (?, ?, ?, ?, ?)`,
				c.ID, c.Name, termValue(c.Terms.PlatformFeeRate), termValue(c.Terms.PlatformFeeCap), termValue(c.Terms.ParticipationFeeRateDaily)); err != nil {
				return err
			}
		}
		for _, p := range ds.Projects {
			if _, err := tx.Exec(`INSERT INTO projects (id, name, contractor_id) VALUES (?, ?, ?)`,
				p.ID, p.Name, p.ContractorID); err != nil {
				return err
			}
		}
		for _, pr := range ds.Requests {
			if _, err := tx.Exec(`INSERT INTO purchase_requests (id, project_id, contractor_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
				pr.ID, pr.ProjectID, pr.ContractorID, pr.Status, pr.CreatedAt.Unix()); err != nil {
				return err
			}
		}
		for _, li := range ds.LineItems {
			if _, err := tx.Exec(`INSERT INTO purchase_request_items (purchase_request_id, requested_qty, unit_rate) VALUES (?, ?, ?)`,
				li.PurchaseRequestID, li.RequestedQty.String(), li.UnitRate.String()); err != nil {
				return err
			}
		}
		for _, ct := range ds.Transactions {
			if _, err := tx.Exec(`
				INSERT INTO capital_transactions
				(id, investor_id, project_id, contractor_id, purchase_request_id, amount, transaction_type, status, created_at, description, reference_number)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ct.ID, ct.InvestorID, ct.ProjectID, ct.ContractorID, ct.PurchaseRequestID,
				ct.Amount.String(), string(ct.Type), string(ct.Status), ct.CreatedAt.Unix(),
				ct.Description, ct.ReferenceNumber); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to seed ledger: %v", err)
	}
}

func termValue(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
