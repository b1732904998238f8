// Package ledger holds the canonical transaction record every pipeline stage
// reads and annotates.
package ledger

import (
	"math"
	"sort"
	"time"
)

// Source records which representation of a transaction is authoritative.
type Source int

const (
	// SourceText records come from free-text statements: Amount is
	// authoritative and Debit/Credit are derived from it.
	SourceText Source = iota
	// SourceTable records come from tabular statements: Debit/Credit are
	// authoritative and Amount is derived from them.
	SourceTable
)

func (s Source) String() string {
	switch s {
	case SourceText:
		return "text"
	case SourceTable:
		return "table"
	default:
		return "unknown"
	}
}

// AnomalyLabel distinguishes "not yet evaluated" from a verdict.
type AnomalyLabel int

const (
	Unevaluated AnomalyLabel = iota
	Normal
	Anomalous
)

func (l AnomalyLabel) String() string {
	switch l {
	case Normal:
		return "normal"
	case Anomalous:
		return "anomalous"
	default:
		return "unevaluated"
	}
}

// Transaction is one normalized ledger entry.
type Transaction struct {
	Date        time.Time
	Description string
	Debit       float64
	Credit      float64
	Amount      float64
	Balance     *float64
	Source      Source

	// Annotations. Stages after extraction only ever write these.
	Category     string
	Flow         string
	Anomaly      AnomalyLabel
	AnomalyScore float64

	// Provenance: the page or file the record came from and its position there.
	Unit string
	Line int
}

// NewTextTransaction builds a transaction whose signed amount is authoritative.
func NewTextTransaction(date time.Time, description string, amount float64) Transaction {
	tx := Transaction{
		Date:        Day(date),
		Description: description,
		Amount:      amount,
		Source:      SourceText,
	}
	if amount < 0 {
		tx.Debit = -amount
	} else {
		tx.Credit = amount
	}
	return tx
}

// NewTableTransaction builds a transaction from separate debit and credit
// magnitudes.
func NewTableTransaction(date time.Time, description string, debit, credit float64) Transaction {
	debit, credit = math.Abs(debit), math.Abs(credit)
	return Transaction{
		Date:        Day(date),
		Description: description,
		Debit:       debit,
		Credit:      credit,
		Amount:      credit - debit,
		Source:      SourceTable,
	}
}

// IsAnomalous reports whether detection flagged this transaction.
func (t Transaction) IsAnomalous() bool {
	return t.Anomaly == Anomalous
}

// Day truncates t to a calendar day at UTC midnight. Statement dates carry no
// time of day, so the calendar fields are kept as written.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Amounts returns the signed amounts in collection order.
func Amounts(txs []Transaction) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount
	}
	return out
}

// DateRange returns the earliest and latest transaction dates. ok is false
// for an empty collection.
func DateRange(txs []Transaction) (first, last time.Time, ok bool) {
	if len(txs) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(first) {
			first = tx.Date
		}
		if tx.Date.After(last) {
			last = tx.Date
		}
	}
	return first, last, true
}

// CountBy tallies transactions by the key function.
func CountBy(txs []Transaction, key func(Transaction) string) map[string]int {
	counts := make(map[string]int)
	for _, tx := range txs {
		counts[key(tx)]++
	}
	return counts
}

// CountAnomalies returns how many transactions are flagged anomalous.
func CountAnomalies(txs []Transaction) int {
	n := 0
	for _, tx := range txs {
		if tx.IsAnomalous() {
			n++
		}
	}
	return n
}

// SortedKeys returns map keys in lexical order, for stable reports.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
