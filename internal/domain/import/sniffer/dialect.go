package sniffer

import (
	"strings"
)

// RegionalDialect is the inferred number and date convention of a file
type RegionalDialect struct {
	DecimalComma bool    // amounts look like 1.234,56
	DayFirst     bool    // at least one date had a day above 12 in first position
	CurrencyHint string  // "EUR", "USD", "GBP" when a symbol was seen
	Confidence   float64 // share of amount hints agreeing with the verdict
}

// ProbeDialect inspects every cell of the sample rows. Cells that look like
// amounts vote for decimal point or decimal comma; date-like cells decide
// day-first ordering; currency symbols add a vote and a hint.
func ProbeDialect(sampleRows [][]string) *RegionalDialect {
	dialect := &RegionalDialect{Confidence: 0.5}

	commaVotes, pointVotes := 0, 0
	for _, row := range sampleRows {
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}

			if looksLikeDate(cell) {
				if dayFirst(cell) {
					dialect.DayFirst = true
				}
				continue
			}

			switch analyzeAmountFormat(cell) {
			case 1:
				commaVotes++
			case -1:
				pointVotes++
			}

			switch {
			case strings.Contains(cell, "€") || strings.Contains(cell, "EUR"):
				dialect.CurrencyHint = "EUR"
				commaVotes++
			case strings.Contains(cell, "£") || strings.Contains(cell, "GBP"):
				dialect.CurrencyHint = "GBP"
				pointVotes++
			case strings.Contains(cell, "$"):
				if dialect.CurrencyHint == "" {
					dialect.CurrencyHint = "USD"
				}
				pointVotes++
			}
		}
	}

	dialect.DecimalComma = commaVotes > pointVotes
	if total := commaVotes + pointVotes; total > 0 {
		winning := max(commaVotes, pointVotes)
		dialect.Confidence = float64(winning) / float64(total)
	}
	return dialect
}

// analyzeAmountFormat returns: >0 for decimal comma, <0 for decimal point,
// 0 for ambiguous or non-numeric cells
func analyzeAmountFormat(val string) int {
	digits := 0
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			digits++
			return r
		case r == ',' || r == '.':
			return r
		case r == '-' || r == '(' || r == ')' || r == ' ' || r == '$' || r == '€' || r == '£':
			return -1
		default:
			return '?'
		}
	}, val)

	if digits == 0 || strings.Contains(cleaned, "?") {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		// The separator that comes last is the decimal one
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1
		}
		return -1
	case hasComma:
		if len(cleaned)-strings.LastIndex(cleaned, ",")-1 <= 2 {
			return 1
		}
	case hasDot:
		if len(cleaned)-strings.LastIndex(cleaned, ".")-1 <= 2 {
			return -1
		}
	}
	return 0
}

func looksLikeDate(val string) bool {
	parts := strings.FieldsFunc(val, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return false
		}
	}
	return true
}

// dayFirst reports whether the first date component can only be a day
func dayFirst(val string) bool {
	first, _, _ := strings.Cut(strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '/'
		}
		return r
	}, val), "/")

	day := 0
	for _, c := range first {
		day = day*10 + int(c-'0')
	}
	return day > 12 && day <= 31
}
