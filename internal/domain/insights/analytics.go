// Package insights derives business-level summaries from a categorized
// ledger: monthly cash flow, recurring payments, loan exposure and a
// lending recommendation.
package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-insights/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

const (
	monthLayout = "2006-01"
	// LoanCategory is the domain label that marks existing borrowing.
	LoanCategory = "loan"
	// positiveMonthsThreshold is the share of positive-net months above
	// which a business is recommended for a loan.
	positiveMonthsThreshold = 0.7
)

// MonthSummary holds one calendar month of cash flow.
type MonthSummary struct {
	Month  string
	Debit  decimal.Decimal
	Credit decimal.Decimal
	Net    decimal.Decimal
}

// MonthlySummary totals debits and credits per YYYY-MM, oldest first.
func MonthlySummary(txs []ledger.Transaction) []MonthSummary {
	byMonth := make(map[string]*MonthSummary)
	for _, tx := range txs {
		key := tx.Date.Format(monthLayout)
		m, ok := byMonth[key]
		if !ok {
			m = &MonthSummary{Month: key}
			byMonth[key] = m
		}
		m.Debit = m.Debit.Add(decimal.NewFromFloat(tx.Debit))
		m.Credit = m.Credit.Add(decimal.NewFromFloat(tx.Credit))
	}

	months := make([]MonthSummary, 0, len(byMonth))
	for _, m := range byMonth {
		m.Net = m.Credit.Sub(m.Debit)
		months = append(months, *m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// RecurringPayment is a counterparty and category seen in several months.
type RecurringPayment struct {
	Description string
	Category    string
	Months      int
	Occurrences int
	Total       decimal.Decimal
	Cadence     Cadence
	// Confidence in Cadence, from 0 to 1.
	Confidence float64
}

// Average returns the mean amount per occurrence.
func (r RecurringPayment) Average() decimal.Decimal {
	if r.Occurrences == 0 {
		return decimal.Zero
	}
	return r.Total.Div(decimal.NewFromInt(int64(r.Occurrences)))
}

// RecurringPayments finds (description, category) pairs that appear in more
// than one month. Descriptions are canonicalized and near-duplicates grouped
// before comparison.
func RecurringPayments(txs []ledger.Transaction) []RecurringPayment {
	type key struct{ desc, category string }

	grouper := newDescriptionGrouper()
	months := make(map[key]map[string]bool)
	dates := make(map[key][]time.Time)
	stats := make(map[key]*RecurringPayment)

	for _, tx := range txs {
		canonical := normalizer.CanonicalDescription(tx.Description)
		if canonical == "" {
			continue
		}
		k := key{desc: grouper.Key(canonical), category: tx.Category}
		if months[k] == nil {
			months[k] = make(map[string]bool)
			stats[k] = &RecurringPayment{Description: k.desc, Category: k.category}
		}
		months[k][tx.Date.Format(monthLayout)] = true
		dates[k] = append(dates[k], tx.Date)
		stats[k].Occurrences++
		stats[k].Total = stats[k].Total.Add(decimal.NewFromFloat(tx.Amount))
	}

	var out []RecurringPayment
	for k, seen := range months {
		if len(seen) > 1 {
			p := *stats[k]
			p.Months = len(seen)
			p.Cadence, p.Confidence = detectCadence(dates[k])
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Description != out[j].Description {
			return out[i].Description < out[j].Description
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// HasExistingLoan reports whether any transaction is categorized as a loan.
func HasExistingLoan(txs []ledger.Transaction) bool {
	for _, tx := range txs {
		if tx.Category == LoanCategory {
			return true
		}
	}
	return false
}

// Recommendation is the lending verdict derived from monthly net flow.
type Recommendation struct {
	PositiveMonths int
	TotalMonths    int
	Eligible       bool
}

// Ratio returns the share of months with a positive net.
func (r Recommendation) Ratio() float64 {
	if r.TotalMonths == 0 {
		return 0
	}
	return float64(r.PositiveMonths) / float64(r.TotalMonths)
}

func (r Recommendation) String() string {
	if r.Eligible {
		return "The business appears to be a good candidate for a business loan."
	}
	return "Further review is needed before recommending a business loan."
}

// Recommend marks a business eligible when more than 70% of months closed
// with a positive net.
func Recommend(months []MonthSummary) Recommendation {
	r := Recommendation{TotalMonths: len(months)}
	for _, m := range months {
		if m.Net.IsPositive() {
			r.PositiveMonths++
		}
	}
	r.Eligible = r.TotalMonths > 0 && r.Ratio() > positiveMonthsThreshold
	return r
}
