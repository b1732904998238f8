package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTextTransaction_DerivesDebitCredit(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantDebit  float64
		wantCredit float64
	}{
		{"expense", -4.00, 4.00, 0},
		{"income", 804.80, 0, 804.80},
		{"zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewTextTransaction(day(2017, 12, 31), "x", tt.amount)
			assert.Equal(t, tt.wantDebit, tx.Debit)
			assert.Equal(t, tt.wantCredit, tx.Credit)
			assert.Equal(t, tt.amount, tx.Amount)
			assert.Equal(t, SourceText, tx.Source)
			assert.Equal(t, Unevaluated, tx.Anomaly)
		})
	}
}

func TestNewTableTransaction_DerivesAmount(t *testing.T) {
	tx := NewTableTransaction(day(2023, 1, 1), "Coffee", -45, 0)
	assert.Equal(t, 45.0, tx.Debit)
	assert.Equal(t, 0.0, tx.Credit)
	assert.Equal(t, -45.0, tx.Amount)
	assert.Equal(t, SourceTable, tx.Source)
}

func TestDay_TruncatesTime(t *testing.T) {
	ts := time.Date(2023, 3, 5, 23, 59, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, day(2023, 3, 5), Day(ts))
}

func TestDateRange(t *testing.T) {
	_, _, ok := DateRange(nil)
	assert.False(t, ok)

	txs := []Transaction{
		{Date: day(2023, 2, 1)},
		{Date: day(2023, 1, 15)},
		{Date: day(2023, 3, 9)},
	}
	first, last, ok := DateRange(txs)
	assert.True(t, ok)
	assert.Equal(t, day(2023, 1, 15), first)
	assert.Equal(t, day(2023, 3, 9), last)
}

func TestCounts(t *testing.T) {
	txs := []Transaction{
		{Flow: "Expense", Anomaly: Anomalous},
		{Flow: "Expense", Anomaly: Normal},
		{Flow: "Deposit"},
	}

	counts := CountBy(txs, func(tx Transaction) string { return tx.Flow })
	assert.Equal(t, map[string]int{"Expense": 2, "Deposit": 1}, counts)
	assert.Equal(t, []string{"Deposit", "Expense"}, SortedKeys(counts))
	assert.Equal(t, 1, CountAnomalies(txs))
	assert.Equal(t, []float64{0, 0, 0}, Amounts(txs))
}

func TestFilter(t *testing.T) {
	txs := []Transaction{
		{Date: day(2023, 1, 1), Category: "rent", Flow: "Expense"},
		{Date: day(2023, 1, 10), Category: "payroll", Flow: "Deposit", Anomaly: Anomalous},
		{Date: day(2023, 2, 1), Category: "misc", Flow: "Other"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"empty filter keeps all", Filter{}, 3},
		{"domain category", Filter{Categories: []string{"rent"}}, 1},
		{"flow category", Filter{Categories: []string{"Deposit", "Other"}}, 2},
		{"date range inclusive", Filter{From: day(2023, 1, 1), To: day(2023, 1, 10)}, 2},
		{"anomalies only", Filter{AnomaliesOnly: true}, 1},
		{"combined", Filter{Categories: []string{"misc"}, AnomaliesOnly: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.filter.Apply(txs), tt.want)
		})
	}
}
