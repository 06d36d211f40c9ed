package ledger

import "github.com/rs/zerolog"

// Diagnostics counts every record the engine degraded instead of failing on.
// Aggregation never raises on bad data; these counters make the silent paths auditable.
type Diagnostics struct {
	CoercedAmounts    int `json:"coerced_amounts"`     // non-numeric or negative amount -> 0
	CoercedLineValues int `json:"coerced_line_values"` // bad qty or rate -> 0
	CoercedTerms      int `json:"coerced_terms"`       // negative finance term -> 0
	UnknownTypes      int `json:"unknown_types"`       // row dropped
	UnknownStatuses   int `json:"unknown_statuses"`    // row kept, treated as not completed
	BadTimestamps     int `json:"bad_timestamps"`      // transaction dropped, request kept undated
	MissingRequests   int `json:"missing_requests"`    // deployment/return with unknown request
	MissingProjects   int `json:"missing_projects"`    // request with unknown project
	MissingInvestors  int `json:"missing_investors"`   // row with unknown investor
	Unattributed      int `json:"unattributed"`        // deployment/return without request
	SolverFallbacks   int `json:"solver_fallbacks"`    // XIRR did not converge
}

// Add returns the field-wise sum of d and other.
func (d Diagnostics) Add(other Diagnostics) Diagnostics {
	return Diagnostics{
		CoercedAmounts:    d.CoercedAmounts + other.CoercedAmounts,
		CoercedLineValues: d.CoercedLineValues + other.CoercedLineValues,
		CoercedTerms:      d.CoercedTerms + other.CoercedTerms,
		UnknownTypes:      d.UnknownTypes + other.UnknownTypes,
		UnknownStatuses:   d.UnknownStatuses + other.UnknownStatuses,
		BadTimestamps:     d.BadTimestamps + other.BadTimestamps,
		MissingRequests:   d.MissingRequests + other.MissingRequests,
		MissingProjects:   d.MissingProjects + other.MissingProjects,
		MissingInvestors:  d.MissingInvestors + other.MissingInvestors,
		Unattributed:      d.Unattributed + other.Unattributed,
		SolverFallbacks:   d.SolverFallbacks + other.SolverFallbacks,
	}
}

// Counts returns the non-zero counters keyed by a stable reason label.
func (d Diagnostics) Counts() map[string]int {
	all := map[string]int{
		"coerced_amount":     d.CoercedAmounts,
		"coerced_line_value": d.CoercedLineValues,
		"coerced_term":       d.CoercedTerms,
		"unknown_type":       d.UnknownTypes,
		"unknown_status":     d.UnknownStatuses,
		"bad_timestamp":      d.BadTimestamps,
		"missing_request":    d.MissingRequests,
		"missing_project":    d.MissingProjects,
		"missing_investor":   d.MissingInvestors,
		"unattributed":       d.Unattributed,
		"solver_fallback":    d.SolverFallbacks,
	}
	out := make(map[string]int)
	for k, v := range all {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Empty reports whether nothing was degraded.
func (d Diagnostics) Empty() bool {
	return d == Diagnostics{}
}

// Log writes a single warning summarizing the degraded records, if any.
func (d Diagnostics) Log(log zerolog.Logger, scope string) {
	if d.Empty() {
		return
	}
	event := log.Warn().Str("scope", scope)
	for reason, n := range d.Counts() {
		event = event.Int(reason, n)
	}
	event.Msg("Ledger data degraded during aggregation")
}
