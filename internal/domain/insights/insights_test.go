package insights

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func labelled(tx ledger.Transaction, category, flow string) ledger.Transaction {
	tx.Category, tx.Flow = category, flow
	return tx
}

func sampleLedger() []ledger.Transaction {
	return []ledger.Transaction{
		labelled(ledger.NewTextTransaction(date(2024, 1, 3), "Office Rent", -1000), "rent", "Expense"),
		labelled(ledger.NewTextTransaction(date(2024, 1, 15), "Client Payment Received", 3000.10), "misc", "Deposit"),
		labelled(ledger.NewTextTransaction(date(2024, 2, 3), "Office Rent", -1000), "rent", "Expense"),
		labelled(ledger.NewTextTransaction(date(2024, 2, 20), "POS UTILITY CO 123456", -80.25), "utilities", "Expense"),
		labelled(ledger.NewTextTransaction(date(2024, 3, 20), "Utility Co 998877", -79.75), "utilities", "Expense"),
		labelled(ledger.NewTextTransaction(date(2024, 3, 28), "Mortgage Repayment", -500), "loan", "Expense"),
	}
}

func TestMonthlySummary(t *testing.T) {
	months := MonthlySummary(sampleLedger())
	require.Len(t, months, 3)

	assert.Equal(t, "2024-01", months[0].Month)
	assert.True(t, months[0].Debit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, months[0].Credit.Equal(decimal.RequireFromString("3000.10")))
	assert.True(t, months[0].Net.Equal(decimal.RequireFromString("2000.10")))

	assert.Equal(t, "2024-02", months[1].Month)
	assert.True(t, months[1].Net.Equal(decimal.RequireFromString("-1080.25")))

	assert.Equal(t, "2024-03", months[2].Month)
	assert.True(t, months[2].Debit.Equal(decimal.RequireFromString("579.75")))
}

func TestMonthlySummary_Empty(t *testing.T) {
	assert.Empty(t, MonthlySummary(nil))
}

func TestRecurringPayments(t *testing.T) {
	got := RecurringPayments(sampleLedger())
	require.Len(t, got, 2)

	assert.Equal(t, "office rent", got[0].Description)
	assert.Equal(t, "rent", got[0].Category)
	assert.Equal(t, 2, got[0].Months)
	assert.True(t, got[0].Average().Equal(decimal.NewFromInt(-1000)))

	// The POS prefix and reference numbers collapse to one counterparty.
	assert.Equal(t, "utility co", got[1].Description)
	assert.Equal(t, 2, got[1].Occurrences)
	assert.True(t, got[1].Total.Equal(decimal.NewFromInt(-160)))
}

func TestRecurringPayments_SameMonthIsNotRecurring(t *testing.T) {
	txs := []ledger.Transaction{
		labelled(ledger.NewTextTransaction(date(2024, 1, 1), "Coffee", -3), "misc", "Other"),
		labelled(ledger.NewTextTransaction(date(2024, 1, 20), "Coffee", -3), "misc", "Other"),
	}
	assert.Empty(t, RecurringPayments(txs))
}

func TestRecurringPayments_CategoryIsPartOfKey(t *testing.T) {
	txs := []ledger.Transaction{
		labelled(ledger.NewTextTransaction(date(2024, 1, 1), "Acme", -3), "misc", "Other"),
		labelled(ledger.NewTextTransaction(date(2024, 2, 1), "Acme", -3), "utilities", "Other"),
	}
	assert.Empty(t, RecurringPayments(txs))
}

func TestHasExistingLoan(t *testing.T) {
	assert.True(t, HasExistingLoan(sampleLedger()))
	assert.False(t, HasExistingLoan(sampleLedger()[:3]))
}

func TestRecommend(t *testing.T) {
	month := func(net int64) MonthSummary { return MonthSummary{Net: decimal.NewFromInt(net)} }

	tests := []struct {
		name     string
		months   []MonthSummary
		eligible bool
	}{
		{"no months", nil, false},
		{"all positive", []MonthSummary{month(1), month(2), month(3)}, true},
		{"exactly seventy percent", []MonthSummary{
			month(1), month(1), month(1), month(1), month(1), month(1), month(1),
			month(-1), month(-1), month(-1),
		}, false},
		{"three of four", []MonthSummary{month(1), month(1), month(1), month(-1)}, true},
		{"zero net is not positive", []MonthSummary{month(0), month(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Recommend(tt.months)
			assert.Equal(t, tt.eligible, r.Eligible)
		})
	}

	assert.Contains(t, Recommendation{Eligible: true}.String(), "good candidate")
	assert.Contains(t, Recommendation{}.String(), "Further review")
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("acme", "acme"))
	assert.Zero(t, similarity("", "acme"))
	assert.GreaterOrEqual(t, similarity("utility co", "utility co ltd"), minGroupScore)
	assert.Less(t, similarity("office rent", "payroll"), minGroupScore)

	g := newDescriptionGrouper()
	assert.Equal(t, "utility co", g.Key("utility co"))
	assert.Equal(t, "utility co", g.Key("utility co ltd"))
	assert.Equal(t, "payroll", g.Key("payroll"))
}

func TestReport_WriteText(t *testing.T) {
	txs := sampleLedger()
	txs[5].Anomaly = ledger.Anomalous

	r := Build(txs, "USD")
	assert.Equal(t, 6, r.Transactions)
	assert.Equal(t, 1, r.Anomalies)
	assert.Equal(t, 5, r.FlowCounts["Expense"])
	assert.Equal(t, 2, r.CategoryCounts["rent"])
	assert.True(t, r.ExistingLoan)

	r.AddArtifact("out/transaction_analysis.png")
	r.AddNote("Forecast", "30 days projected")

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "Transactions: 6")
	assert.Contains(t, out, "Period:       2024-01-03 to 2024-03-28")
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "$3,000.10")
	assert.Contains(t, out, "office rent [rent]: 2 payments over 2 months")
	assert.Contains(t, out, "Existing loan repayments were found.")
	assert.Contains(t, out, "Positive months: 1 of 3")
	assert.Contains(t, out, "Further review")
	assert.Contains(t, out, "30 days projected")
	assert.Contains(t, out, "out/transaction_analysis.png")
}

func TestReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(nil, "EUR").WriteText(&buf))
	assert.Contains(t, buf.String(), "Transactions: 0")
	assert.NotContains(t, buf.String(), "Period:")
}

func TestDetectCadence(t *testing.T) {
	monthly := []time.Time{date(2024, 3, 1), date(2024, 1, 1), date(2024, 2, 1)}
	cadence, confidence := detectCadence(monthly)
	assert.Equal(t, CadenceMonthly, cadence)
	assert.Greater(t, confidence, 0.9)

	weekly := []time.Time{date(2024, 1, 1), date(2024, 1, 8), date(2024, 1, 15)}
	cadence, confidence = detectCadence(weekly)
	assert.Equal(t, CadenceWeekly, cadence)
	assert.Equal(t, 1.0, confidence)

	cadence, _ = detectCadence([]time.Time{date(2024, 1, 1), date(2024, 1, 3)})
	assert.Equal(t, CadenceUnknown, cadence)

	cadence, confidence = detectCadence([]time.Time{date(2024, 1, 1)})
	assert.Equal(t, CadenceUnknown, cadence)
	assert.Zero(t, confidence)
}
