package insights

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/pkg/money"
)

// Note is a free-form section appended to the report, such as a forecast
// outcome or a narrative per statement page.
type Note struct {
	Title string
	Body  string
}

// Report is everything the text report prints.
type Report struct {
	Currency       string
	Transactions   int
	From, To       time.Time
	Total          decimal.Decimal
	FlowCounts     map[string]int
	CategoryCounts map[string]int
	Anomalies      int
	Months         []MonthSummary
	Recurring      []RecurringPayment
	ExistingLoan   bool
	Recommendation Recommendation
	Artifacts      []string
	Notes          []Note
}

// Build computes the report for a categorized, anomaly-labelled ledger.
func Build(txs []ledger.Transaction, currency string) *Report {
	months := MonthlySummary(txs)
	r := &Report{
		Currency:       currency,
		Transactions:   len(txs),
		Total:          money.Sum(ledger.Amounts(txs)...),
		FlowCounts:     ledger.CountBy(txs, func(tx ledger.Transaction) string { return tx.Flow }),
		CategoryCounts: ledger.CountBy(txs, func(tx ledger.Transaction) string { return tx.Category }),
		Anomalies:      ledger.CountAnomalies(txs),
		Months:         months,
		Recurring:      RecurringPayments(txs),
		ExistingLoan:   HasExistingLoan(txs),
		Recommendation: Recommend(months),
	}
	r.From, r.To, _ = ledger.DateRange(txs)
	return r
}

// AddArtifact records a written output location.
func (r *Report) AddArtifact(location string) {
	r.Artifacts = append(r.Artifacts, location)
}

// AddNote appends a free-form section.
func (r *Report) AddNote(title, body string) {
	r.Notes = append(r.Notes, Note{Title: title, Body: body})
}

// WriteText renders the report as plain text.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Bank Statement Analysis Report\n")
	b.WriteString("==============================\n\n")
	fmt.Fprintf(&b, "Transactions: %d\n", r.Transactions)
	if r.Transactions > 0 {
		fmt.Fprintf(&b, "Period:       %s to %s\n", r.From.Format(time.DateOnly), r.To.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "Net total:    %s\n", r.format(r.Total))
	fmt.Fprintf(&b, "Anomalies:    %d\n", r.Anomalies)

	writeCounts(&b, "Transactions by flow", r.FlowCounts)
	writeCounts(&b, "Transactions by category", r.CategoryCounts)

	if len(r.Months) > 0 {
		b.WriteString("\nMonthly summary\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Month\tDebit\tCredit\tNet\t")
		for _, m := range r.Months {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Month, r.format(m.Debit), r.format(m.Credit), money.FormatSigned(m.Net.InexactFloat64(), r.Currency))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Recurring) > 0 {
		b.WriteString("\nRecurring payments\n")
		for _, p := range r.Recurring {
			fmt.Fprintf(&b, "  %s [%s]: %d payments over %d months, avg %s, %s\n",
				p.Description, p.Category, p.Occurrences, p.Months, r.format(p.Average()), p.Cadence)
		}
	}

	b.WriteString("\n")
	if r.ExistingLoan {
		b.WriteString("Existing loan repayments were found.\n")
	} else {
		b.WriteString("No existing loan repayments were found.\n")
	}
	fmt.Fprintf(&b, "Positive months: %d of %d\n", r.Recommendation.PositiveMonths, r.Recommendation.TotalMonths)
	fmt.Fprintf(&b, "Recommendation: %s\n", r.Recommendation)

	for _, n := range r.Notes {
		fmt.Fprintf(&b, "\n%s\n%s\n", n.Title, strings.TrimRight(n.Body, "\n"))
	}

	if len(r.Artifacts) > 0 {
		b.WriteString("\nArtifacts\n")
		for _, a := range r.Artifacts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Report) format(d decimal.Decimal) string {
	return money.Format(d.InexactFloat64(), r.Currency)
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, k := range ledger.SortedKeys(counts) {
		label := k
		if label == "" {
			label = "(uncategorized)"
		}
		fmt.Fprintf(b, "  %-20s %d\n", label, counts[k])
	}
}
