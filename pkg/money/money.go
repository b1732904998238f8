// Package money formats and sums statement amounts without float drift.
// Amounts travel through the pipeline as float64; anything that is summed or
// shown to a reader goes through decimal and go-money first.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
)

// DefaultCurrency is used when a statement carries no currency information.
const DefaultCurrency = USD

// Money represents a monetary value in a single currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units (cents).
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromFloat creates Money from a parsed statement amount.
func NewFromFloat(amount float64, currencyCode string) *Money {
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// NewFromDecimal creates Money from a decimal value, rounding to the
// currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = DefaultCurrency
		currency = money.GetCurrency(DefaultCurrency)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Add returns m + other. Both values must share a currency.
func (m *Money) Add(other *Money) (*Money, error) {
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("add %s to %s: %w", other.Currency(), m.Currency(), err)
	}
	return &Money{m: sum}, nil
}

// IsNegative reports whether the amount is below zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Display formats the value with its currency symbol, e.g. "$1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

func (m *Money) String() string {
	return m.Display()
}

// ToDecimal converts the value back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// ToFloat64 converts the value to a float in major units.
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

// Sum adds float amounts through decimal so long columns of cents stay exact.
func Sum(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

// Format renders a float amount in the given currency.
func Format(amount float64, currencyCode string) string {
	return NewFromFloat(amount, currencyCode).Display()
}

// FormatSigned renders an amount with an explicit sign, used for net figures.
func FormatSigned(amount float64, currencyCode string) string {
	s := Format(amount, currencyCode)
	if amount > 0 && !strings.HasPrefix(s, "+") {
		return "+" + s
	}
	return s
}
