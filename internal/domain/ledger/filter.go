package ledger

import (
	"slices"
	"time"
)

// Filter selects a subset of a ledger. Zero fields match everything.
type Filter struct {
	// Categories matches either the domain category or the flow category.
	Categories []string
	From       time.Time
	To         time.Time
	// AnomaliesOnly keeps flagged transactions only.
	AnomaliesOnly bool
}

// Match reports whether tx passes every set criterion. From and To are
// inclusive calendar days.
func (f Filter) Match(tx Transaction) bool {
	if len(f.Categories) > 0 &&
		!slices.Contains(f.Categories, tx.Category) &&
		!slices.Contains(f.Categories, tx.Flow) {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(Day(f.To)) {
		return false
	}
	if f.AnomaliesOnly && !tx.IsAnomalous() {
		return false
	}
	return true
}

// Apply returns the matching transactions, preserving order.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}
