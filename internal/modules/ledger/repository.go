package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/siteledger/capital/internal/utils"
)

// Repository reads the capital ledger from ledger.db.
// It never writes: rows are owned by the deployment/return workflows upstream.
// Only a failed query surfaces as an error; malformed rows are normalized and counted.
type Repository struct {
	ledgerDB *sql.DB        // ledger.db - capital_transactions and reference tables
	log      zerolog.Logger // Structured logger
}

// NewRepository creates a new ledger repository.
//
// Parameters:
//   - ledgerDB: Database connection to ledger.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Filter narrows ListTransactions. Empty fields do not filter.
type Filter struct {
	Type       TransactionType
	Status     TransactionStatus
	InvestorID string
	RequestID  string
	Limit      int
}

// SummaryRow is the count and sum of one (type, status) pair.
type SummaryRow struct {
	Type   TransactionType   `json:"transaction_type"`
	Status TransactionStatus `json:"status"`
	Count  int               `json:"count"`
	Total  decimal.Decimal   `json:"total"`
}

const transactionColumns = `id, investor_id, project_id, contractor_id, purchase_request_id,
	amount, transaction_type, status, created_at, description, reference_number`

// LoadDataset fetches every table one computation needs.
// This is the single fetch per request; everything downstream is in-memory.
//
// Returns:
//   - *Dataset: Typed records (transactions of every status; callers filter)
//   - Diagnostics: Coercions applied while normalizing rows
//   - error: Error if any query fails
func (r *Repository) LoadDataset(ctx context.Context) (*Dataset, Diagnostics, error) {
	var diag Diagnostics
	ds := &Dataset{}
	done := utils.MeasureDBQuery("load_dataset", r.log)

	txs, txDiag, err := r.queryTransactions(ctx, "SELECT "+transactionColumns+" FROM capital_transactions ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, diag, err
	}
	ds.Transactions = txs
	diag = diag.Add(txDiag)

	requests, requestDiag, err := r.loadRequests(ctx)
	if err != nil {
		return nil, diag, err
	}
	ds.Requests = requests
	diag = diag.Add(requestDiag)

	items, itemDiag, err := r.loadLineItems(ctx)
	if err != nil {
		return nil, diag, err
	}
	ds.LineItems = items
	diag = diag.Add(itemDiag)

	if ds.Investors, err = r.loadInvestors(ctx); err != nil {
		return nil, diag, err
	}
	if ds.Projects, err = r.loadProjects(ctx); err != nil {
		return nil, diag, err
	}

	contractors, termDiag, err := r.loadContractors(ctx)
	if err != nil {
		return nil, diag, err
	}
	ds.Contractors = contractors
	diag = diag.Add(termDiag)

	done(len(ds.Transactions))
	r.log.Debug().
		Int("transactions", len(ds.Transactions)).
		Int("requests", len(ds.Requests)).
		Int("line_items", len(ds.LineItems)).
		Int("investors", len(ds.Investors)).
		Int("projects", len(ds.Projects)).
		Int("contractors", len(ds.Contractors)).
		Msg("Loaded ledger dataset")

	return ds, diag, nil
}

// ListTransactions returns transactions matching the filter, most recent first.
func (r *Repository) ListTransactions(ctx context.Context, f Filter) ([]CapitalTransaction, error) {
	query := "SELECT " + transactionColumns + " FROM capital_transactions WHERE 1=1"
	args := []interface{}{}

	if f.Type != "" {
		query += " AND transaction_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.InvestorID != "" {
		query += " AND investor_id = ?"
		args = append(args, f.InvestorID)
	}
	if f.RequestID != "" {
		query += " AND purchase_request_id = ?"
		args = append(args, f.RequestID)
	}

	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	txs, diag, err := r.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	diag.Log(r.log, "list_transactions")
	return txs, nil
}

// Summary returns count and total amount per transaction type and status.
// Totals are summed in Go so malformed amounts follow the same coercion as aggregation.
func (r *Repository) Summary(ctx context.Context) ([]SummaryRow, error) {
	txs, diag, err := r.queryTransactions(ctx, "SELECT "+transactionColumns+" FROM capital_transactions ORDER BY transaction_type, status")
	if err != nil {
		return nil, err
	}
	diag.Log(r.log, "summary")

	index := make(map[string]int)
	rows := make([]SummaryRow, 0)
	for _, tx := range txs {
		key := string(tx.Type) + "/" + string(tx.Status)
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, SummaryRow{Type: tx.Type, Status: tx.Status, Total: decimal.Zero})
		}
		rows[i].Count++
		rows[i].Total = rows[i].Total.Add(tx.Amount)
	}
	return rows, nil
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]CapitalTransaction, Diagnostics, error) {
	var diag Diagnostics

	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, diag, fmt.Errorf("failed to query capital transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]CapitalTransaction, 0)
	for rows.Next() {
		var raw RawTransaction
		var investorID, projectID, contractorID, requestID, description, reference sql.NullString

		if err := rows.Scan(
			&raw.ID,
			&investorID,
			&projectID,
			&contractorID,
			&requestID,
			&raw.Amount,
			&raw.Type,
			&raw.Status,
			&raw.CreatedAt,
			&description,
			&reference,
		); err != nil {
			return nil, diag, fmt.Errorf("failed to scan capital transaction: %w", err)
		}

		raw.InvestorID = nullableString(investorID)
		raw.ProjectID = nullableString(projectID)
		raw.ContractorID = nullableString(contractorID)
		raw.PurchaseRequestID = nullableString(requestID)
		raw.Description = nullableString(description)
		raw.ReferenceNumber = nullableString(reference)

		tx, ok, rowDiag := NormalizeTransaction(raw)
		diag = diag.Add(rowDiag)
		if !ok {
			r.log.Debug().Str("tx_id", raw.ID).Str("type", raw.Type).Interface("created_at", raw.CreatedAt).Msg("Dropping malformed transaction")
			continue
		}
		if rowDiag.CoercedAmounts > 0 {
			r.log.Debug().Str("tx_id", raw.ID).Interface("amount", raw.Amount).Msg("Coerced malformed amount to zero")
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, diag, fmt.Errorf("error iterating capital transactions: %w", err)
	}

	return txs, diag, nil
}

func (r *Repository) loadRequests(ctx context.Context) ([]PurchaseRequest, Diagnostics, error) {
	var diag Diagnostics

	rows, err := r.ledgerDB.QueryContext(ctx, `
		SELECT id, project_id, contractor_id, status, created_at
		FROM purchase_requests
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, diag, fmt.Errorf("failed to query purchase requests: %w", err)
	}
	defer rows.Close()

	requests := make([]PurchaseRequest, 0)
	for rows.Next() {
		var pr PurchaseRequest
		var createdAt interface{}
		if err := rows.Scan(&pr.ID, &pr.ProjectID, &pr.ContractorID, &pr.Status, &createdAt); err != nil {
			return nil, diag, fmt.Errorf("failed to scan purchase request: %w", err)
		}
		// Funding rows still reference the request, so it stays with a zero date.
		if at, ok := ParseTimestamp(createdAt); ok {
			pr.CreatedAt = at
		} else {
			diag.BadTimestamps++
			r.log.Debug().Str("request_id", pr.ID).Interface("created_at", createdAt).Msg("Unparseable request timestamp")
		}
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, diag, fmt.Errorf("error iterating purchase requests: %w", err)
	}
	return requests, diag, nil
}

func (r *Repository) loadLineItems(ctx context.Context) ([]LineItem, Diagnostics, error) {
	var diag Diagnostics

	rows, err := r.ledgerDB.QueryContext(ctx, `
		SELECT purchase_request_id, requested_qty, unit_rate
		FROM purchase_request_items
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, diag, fmt.Errorf("failed to query purchase request items: %w", err)
	}
	defer rows.Close()

	items := make([]LineItem, 0)
	for rows.Next() {
		var raw RawLineItem
		if err := rows.Scan(&raw.PurchaseRequestID, &raw.RequestedQty, &raw.UnitRate); err != nil {
			return nil, diag, fmt.Errorf("failed to scan purchase request item: %w", err)
		}
		item, itemDiag := NormalizeLineItem(raw)
		diag = diag.Add(itemDiag)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, diag, fmt.Errorf("error iterating purchase request items: %w", err)
	}
	return items, diag, nil
}

func (r *Repository) loadInvestors(ctx context.Context) ([]Investor, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, "SELECT id, name, email, status FROM investors ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query investors: %w", err)
	}
	defer rows.Close()

	investors := make([]Investor, 0)
	for rows.Next() {
		var inv Investor
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Email, &inv.Status); err != nil {
			return nil, fmt.Errorf("failed to scan investor: %w", err)
		}
		investors = append(investors, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investors: %w", err)
	}
	return investors, nil
}

func (r *Repository) loadProjects(ctx context.Context) ([]Project, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, "SELECT id, name, contractor_id FROM projects ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var p Project
		var contractorID sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &contractorID); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.ContractorID = contractorID.String
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *Repository) loadContractors(ctx context.Context) ([]Contractor, Diagnostics, error) {
	var diag Diagnostics

	rows, err := r.ledgerDB.QueryContext(ctx, `
		SELECT id, name, platform_fee_rate, platform_fee_cap, participation_fee_rate_daily
		FROM contractors
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, diag, fmt.Errorf("failed to query contractors: %w", err)
	}
	defer rows.Close()

	contractors := make([]Contractor, 0)
	for rows.Next() {
		var c Contractor
		var rate, feeCap, daily sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &rate, &feeCap, &daily); err != nil {
			return nil, diag, fmt.Errorf("failed to scan contractor: %w", err)
		}

		var coerced int
		c.Terms.PlatformFeeRate, coerced = parseTerm(rate)
		diag.CoercedTerms += coerced
		c.Terms.PlatformFeeCap, coerced = parseTerm(feeCap)
		diag.CoercedTerms += coerced
		c.Terms.ParticipationFeeRateDaily, coerced = parseTerm(daily)
		diag.CoercedTerms += coerced

		contractors = append(contractors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, diag, fmt.Errorf("error iterating contractors: %w", err)
	}
	return contractors, diag, nil
}

// parseTerm reads an optional finance-term column.
// NULL or blank means unset (nil); anything unparseable or negative becomes 0 and is counted.
func parseTerm(ns sql.NullString) (*decimal.Decimal, int) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil, 0
	}
	d, ok := ParseAmount(ns.String)
	if !ok {
		zero := decimal.Zero
		return &zero, 1
	}
	return &d, 0
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
