package ledger

// Completed returns the rows with status completed, preserving order.
// This is the only predicate applied to amount inclusion anywhere in the engine.
func Completed(txs []CapitalTransaction) []CapitalTransaction {
	out := make([]CapitalTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsCompleted() {
			out = append(out, tx)
		}
	}
	return out
}

// OfType returns the rows of the given transaction type, preserving order.
func OfType(txs []CapitalTransaction, t TransactionType) []CapitalTransaction {
	out := make([]CapitalTransaction, 0)
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// GroupBy partitions rows by the key returned from keyFn.
// Rows for which keyFn reports ok=false are left out. Order within a group follows input order.
func GroupBy(txs []CapitalTransaction, keyFn func(CapitalTransaction) (string, bool)) map[string][]CapitalTransaction {
	groups := make(map[string][]CapitalTransaction)
	for _, tx := range txs {
		key, ok := keyFn(tx)
		if !ok {
			continue
		}
		groups[key] = append(groups[key], tx)
	}
	return groups
}

// ByPurchaseRequest keys a row by its purchase request.
func ByPurchaseRequest(tx CapitalTransaction) (string, bool) {
	return deref(tx.PurchaseRequestID)
}

// ByInvestor keys a row by its investor.
func ByInvestor(tx CapitalTransaction) (string, bool) {
	return deref(tx.InvestorID)
}

// ByProject keys a row by its project.
func ByProject(tx CapitalTransaction) (string, bool) {
	return deref(tx.ProjectID)
}

func deref(s *string) (string, bool) {
	if s == nil || *s == "" {
		return "", false
	}
	return *s, true
}
