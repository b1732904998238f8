package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a best-effort parse result. OK distinguishes a parsed zero from
// a value that could not be read.
type Amount struct {
	Value float64
	OK    bool
}

// AmountOptions tunes amount parsing for regional formats.
type AmountOptions struct {
	// DecimalComma treats "," as the decimal separator and "." as the
	// thousands separator (1.234,56).
	DecimalComma bool
}

// ParseAmount reads a monetary string such as "$1,234.56", "-45.00" or
// "(45.00)". It never fails: unreadable input yields Amount{0, false}.
func ParseAmount(s string) Amount {
	return ParseAmountWith(s, AmountOptions{})
}

// ParseAmountWith is ParseAmount with regional options.
//
// Every rune other than digits, '.', '-', '(' and ')' is stripped first.
// When both parentheses survive the value is negative regardless of any
// minus sign inside them.
func ParseAmountWith(s string, opts AmountOptions) Amount {
	if opts.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '(' || r == ')' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	negative := strings.Contains(cleaned, "(") && strings.Contains(cleaned, ")")
	if negative {
		cleaned = strings.NewReplacer("(", "", ")", "", "-", "").Replace(cleaned)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}
	}
	if negative {
		d = d.Abs().Neg()
	}

	return Amount{Value: d.InexactFloat64(), OK: true}
}
