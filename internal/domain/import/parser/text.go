package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

const (
	// FullDatePattern matches "12/31/2017 Coffee Shop Purchase 4.50".
	FullDatePattern = `(\d{2}/\d{2}/\d{4})\s+([A-Za-z0-9 \-.,&]+?)\s+\$?([\d,]+\.\d{2})`
	// ShortDatePattern matches "01 Dec Account Fee 4.00 804.80" at the start
	// of a line: date, description, debit, credit.
	ShortDatePattern = `(?m)^(\d{1,2}\s+[A-Za-z]{3})\s+([\w\s\-.,&]+?)\s+(\$?[\d,]+\.\d{2})\s+(\$?[\d,]+\.\d{2})`
)

// Strategy extracts transactions from one unit of statement text.
type Strategy interface {
	Name() string
	Extract(unit Unit) Extraction
}

// Extraction is what a strategy found. Matches counts every pattern match,
// including the ones that could not be converted into a transaction.
type Extraction struct {
	Matches      int
	Transactions []ledger.Transaction
	Errors       []ParseError
}

// buildFunc converts one regex submatch into a transaction.
type buildFunc func(groups []string) (ledger.Transaction, *ParseError)

// extractMatches runs re over the unit and builds one transaction per
// non-overlapping match, recording the 1-based line of each match.
func extractMatches(re *regexp.Regexp, unit Unit, build buildFunc) Extraction {
	var out Extraction
	for _, idx := range re.FindAllStringSubmatchIndex(unit.Text, -1) {
		groups := make([]string, len(idx)/2)
		for g := range groups {
			if idx[2*g] >= 0 {
				groups[g] = unit.Text[idx[2*g]:idx[2*g+1]]
			}
		}
		line := strings.Count(unit.Text[:idx[0]], "\n") + 1
		out.Matches++

		tx, perr := build(groups)
		if perr != nil {
			perr.Unit = unit.Name
			perr.Row = line
			out.Errors = append(out.Errors, *perr)
			continue
		}
		tx.Unit = unit.Name
		tx.Line = line
		out.Transactions = append(out.Transactions, tx)
	}
	return out
}

// FullDateStrategy reads single-amount lines with an MM/DD/YYYY date.
// Amounts are taken as positive; the pattern carries no sign.
type FullDateStrategy struct {
	pattern *regexp.Regexp
}

// NewFullDateStrategy compiles expr, or FullDatePattern when expr is empty.
// The pattern must capture date, description and amount in that order.
func NewFullDateStrategy(expr string) (*FullDateStrategy, error) {
	if expr == "" {
		expr = FullDatePattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile full-date pattern: %w", err)
	}
	if re.NumSubexp() < 3 {
		return nil, fmt.Errorf("full-date pattern needs 3 capture groups, has %d", re.NumSubexp())
	}
	return &FullDateStrategy{pattern: re}, nil
}

func (s *FullDateStrategy) Name() string { return "full-date" }

func (s *FullDateStrategy) Extract(unit Unit) Extraction {
	return extractMatches(s.pattern, unit, func(g []string) (ledger.Transaction, *ParseError) {
		date, err := time.Parse("01/02/2006", g[1])
		if err != nil {
			return ledger.Transaction{}, &ParseError{Column: "date", Message: "invalid date", RawData: g[1]}
		}
		amount := ParseAmount(g[3])
		if !amount.OK {
			return ledger.Transaction{}, &ParseError{Column: "amount", Message: "invalid amount", RawData: g[3]}
		}
		return ledger.NewTextTransaction(date, cleanDescription(g[2]), amount.Value), nil
	})
}

// ShortDateStrategy reads dual-amount lines whose date has no year
// ("01 Dec"). The year comes from ReferenceYear; when that is zero the
// current year of the clock is assumed and a warning is logged, since
// statements spanning a year boundary will then be misdated.
type ShortDateStrategy struct {
	pattern       *regexp.Regexp
	referenceYear int
	now           func() time.Time
	logger        *slog.Logger
}

// NewShortDateStrategy compiles expr, or ShortDatePattern when expr is empty.
// The pattern must capture date, description, debit and credit.
func NewShortDateStrategy(expr string, referenceYear int, now func() time.Time, logger *slog.Logger) (*ShortDateStrategy, error) {
	if expr == "" {
		expr = ShortDatePattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile short-date pattern: %w", err)
	}
	if re.NumSubexp() < 4 {
		return nil, fmt.Errorf("short-date pattern needs 4 capture groups, has %d", re.NumSubexp())
	}
	if now == nil {
		now = time.Now
	}
	return &ShortDateStrategy{pattern: re, referenceYear: referenceYear, now: now, logger: logger}, nil
}

func (s *ShortDateStrategy) Name() string { return "short-date" }

func (s *ShortDateStrategy) Extract(unit Unit) Extraction {
	year := s.referenceYear
	if year == 0 {
		year = s.now().Year()
	}

	out := extractMatches(s.pattern, unit, func(g []string) (ledger.Transaction, *ParseError) {
		raw := strings.Join(strings.Fields(g[1]), " ") + " " + strconv.Itoa(year)
		date, err := time.Parse("2 Jan 2006", raw)
		if err != nil {
			return ledger.Transaction{}, &ParseError{Column: "date", Message: "invalid date", RawData: g[1]}
		}

		debit := ParseAmount(g[3])
		credit := ParseAmount(g[4])
		if !debit.OK || !credit.OK {
			return ledger.Transaction{}, &ParseError{Column: "amount", Message: "invalid amount", RawData: g[3] + " " + g[4]}
		}

		amount := credit.Value
		if debit.Value > 0 {
			amount = -debit.Value
		}
		return ledger.NewTextTransaction(date, cleanDescription(g[2]), amount), nil
	})

	if out.Matches > 0 && s.referenceYear == 0 {
		s.logger.Warn("year-less statement dates assume the current year; set a reference year to override",
			slog.String("unit", unit.Name),
			slog.Int("assumed_year", year),
		)
	}
	return out
}

// TextParser tries its strategies in order and keeps the result of the
// first one that matches anything.
type TextParser struct {
	strategies []Strategy
	logger     *slog.Logger
}

// Options configures the default strategy list.
type Options struct {
	FullDatePattern  string
	ShortDatePattern string
	// ReferenceYear dates year-less records. Zero falls back to Now().Year().
	ReferenceYear int
	Now           func() time.Time
}

// DefaultStrategies returns the full-date strategy followed by the
// short-date fallback.
func DefaultStrategies(opts Options, logger *slog.Logger) ([]Strategy, error) {
	full, err := NewFullDateStrategy(opts.FullDatePattern)
	if err != nil {
		return nil, err
	}
	short, err := NewShortDateStrategy(opts.ShortDatePattern, opts.ReferenceYear, opts.Now, logger)
	if err != nil {
		return nil, err
	}
	return []Strategy{full, short}, nil
}

// NewTextParser creates a parser over an explicit, ordered strategy list.
func NewTextParser(logger *slog.Logger, strategies ...Strategy) *TextParser {
	return &TextParser{strategies: strategies, logger: logger}
}

// Strategies returns the strategy names in evaluation order.
func (p *TextParser) Strategies() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Parse extracts transactions from one unit. A unit no strategy matches
// yields an empty, non-error result; an unreadable unit yields a result
// carrying its read error.
func (p *TextParser) Parse(unit Unit) UnitResult {
	if unit.Err != nil {
		p.logger.Warn("skipping unreadable unit",
			slog.String("unit", unit.Name),
			slog.Any("error", unit.Err))
		return UnitResult{
			Unit:    unit.Name,
			ReadErr: unit.Err,
			Errors: []ParseError{{
				Unit:    unit.Name,
				Column:  ColumnFile,
				Message: unit.Err.Error(),
			}},
		}
	}

	for _, s := range p.strategies {
		ext := s.Extract(unit)
		if ext.Matches == 0 {
			continue
		}

		if len(ext.Errors) > 0 {
			p.logger.Warn("dropped unparseable records",
				slog.String("unit", unit.Name),
				slog.String("strategy", s.Name()),
				slog.Int("dropped", len(ext.Errors)),
			)
		}
		return UnitResult{
			Unit:         unit.Name,
			Strategy:     s.Name(),
			Transactions: ext.Transactions,
			Errors:       ext.Errors,
		}
	}

	p.logger.Warn("no transactions found", slog.String("unit", unit.Name))
	return UnitResult{Unit: unit.Name}
}
