// Package ledgertest generates realistic statement data for tests.
package ledgertest

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// Generator produces reproducible statements from a seed.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a generator with a fixed seed.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

var expenseDescriptions = []string{
	"Monthly Gas Bill Payment",
	"Office Rent",
	"Water Utility",
	"Card Purchase Grocery Store",
	"Internet Service",
	"Insurance Premium",
	"Mortgage Repayment",
	"ATM Withdrawal",
	"Coffee Shop Purchase",
	"Check 1043",
}

var incomeDescriptions = []string{
	"Payroll Deposit",
	"Client Payment Received",
	"Incoming Transfer",
	"Salary Credit",
}

// Description returns a random statement description.
func (g *Generator) Description() string {
	if g.faker.Bool() {
		return incomeDescriptions[g.faker.Number(0, len(incomeDescriptions)-1)]
	}
	return expenseDescriptions[g.faker.Number(0, len(expenseDescriptions)-1)]
}

// Amount returns a signed amount with cent precision in [-max, max].
func (g *Generator) Amount(max float64) float64 {
	cents := g.faker.Number(1, int(max*100))
	if g.faker.Bool() {
		cents = -cents
	}
	return float64(cents) / 100
}

// Transactions generates n text-sourced transactions on consecutive days
// starting at start.
func (g *Generator) Transactions(start time.Time, n int) []ledger.Transaction {
	txs := make([]ledger.Transaction, n)
	for i := range txs {
		txs[i] = ledger.NewTextTransaction(start.AddDate(0, 0, i), g.Description(), g.Amount(200))
	}
	return txs
}

// WithOutliers returns n ordinary amounts in [10, 50) with k extreme values
// placed at the front.
func (g *Generator) WithOutliers(n, k int) []float64 {
	values := make([]float64, n)
	for i := range values {
		if i < k {
			values[i] = g.faker.Float64Range(5000, 10000)
			continue
		}
		values[i] = g.faker.Float64Range(10, 50)
	}
	return values
}

// FullDateStatement renders transactions as MM/DD/YYYY statement lines.
// Amounts are written as magnitudes, the way full-date statements print them.
func FullDateStatement(txs []ledger.Transaction) string {
	var b strings.Builder
	b.WriteString("ACCOUNT STATEMENT\nDate Description Amount\n")
	for _, tx := range txs {
		amount := tx.Amount
		if amount < 0 {
			amount = -amount
		}
		fmt.Fprintf(&b, "%s %s %s\n", tx.Date.Format("01/02/2006"), tx.Description, formatAmount(amount))
	}
	return b.String()
}

func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(s, ".")
	var out []byte
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return string(out) + "." + frac
}
