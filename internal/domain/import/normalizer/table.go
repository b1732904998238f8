// Package normalizer maps raw statement grids onto the canonical ledger
// columns and canonicalizes free-text descriptions.
package normalizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// ErrEmptyGrid is returned for a grid without even a header row.
var ErrEmptyGrid = errors.New("grid has no header row")

// Column is a canonical ledger column.
type Column string

const (
	ColumnDate        Column = "date"
	ColumnDescription Column = "description"
	ColumnDebit       Column = "debit"
	ColumnCredit      Column = "credit"
	ColumnBalance     Column = "balance"
	// ColumnAmount is a signed single-amount column. It is split into
	// debit and credit and never appears in the output.
	ColumnAmount Column = "amount"
)

// CanonicalOrder is the output column order.
var CanonicalOrder = []Column{ColumnDate, ColumnDescription, ColumnDebit, ColumnCredit, ColumnBalance}

// HeaderRule maps header substrings to a column.
type HeaderRule struct {
	Column   Column
	Keywords []string
}

// DefaultHeaderRules are evaluated in order; a header takes the column of
// the first rule with a keyword it contains.
var DefaultHeaderRules = []HeaderRule{
	{ColumnDate, []string{"date"}},
	{ColumnDescription, []string{"desc", "narration"}},
	{ColumnDebit, []string{"debit"}},
	{ColumnCredit, []string{"credit"}},
	{ColumnBalance, []string{"bal"}},
	{ColumnAmount, []string{"amount"}},
}

// ClassifyHeaders returns the index of the first header assigned to each
// column. Headers matching no rule, and later headers of an already
// assigned column, are left unclassified.
func ClassifyHeaders(headers []string, rules []HeaderRule) map[Column]int {
	if rules == nil {
		rules = DefaultHeaderRules
	}

	columns := make(map[Column]int)
	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}
	rules:
		for _, rule := range rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(h, kw) {
					if _, taken := columns[rule.Column]; !taken {
						columns[rule.Column] = i
					}
					break rules
				}
			}
		}
	}
	return columns
}

// Row is one normalized grid row. Fields for absent columns stay zero.
type Row struct {
	Date        time.Time
	HasDate     bool
	Description string
	Debit       float64
	Credit      float64
	Balance     *float64
	// Line is the 1-based position of the row in the source grid.
	Line int
}

// Table is the normalized grid.
type Table struct {
	Columns []Column
	Rows    []Row
	// Dropped lists rows removed because their date did not parse.
	Dropped []parser.ParseError
	// Warnings describe structural gaps that did not stop normalization.
	Warnings []string
}


// Transactions converts dated rows into table-sourced ledger transactions.
// Rows without a date cannot enter the ledger and are skipped.
func (t *Table) Transactions(unit string) []ledger.Transaction {
	txs := make([]ledger.Transaction, 0, len(t.Rows))
	for _, row := range t.Rows {
		if !row.HasDate {
			continue
		}
		tx := ledger.NewTableTransaction(row.Date, row.Description, row.Debit, row.Credit)
		tx.Balance = row.Balance
		tx.Unit = unit
		tx.Line = row.Line
		txs = append(txs, tx)
	}
	return txs
}

// Options configures a ColumnNormalizer.
type Options struct {
	Rules   []HeaderRule
	Dates   parser.DateParser
	Amounts parser.AmountOptions
}

// ColumnNormalizer maps heterogeneous statement grids onto CanonicalOrder.
type ColumnNormalizer struct {
	opts   Options
	logger *slog.Logger
}

// NewColumnNormalizer creates a normalizer.
func NewColumnNormalizer(logger *slog.Logger, opts Options) *ColumnNormalizer {
	if opts.Rules == nil {
		opts.Rules = DefaultHeaderRules
	}
	return &ColumnNormalizer{opts: opts, logger: logger}
}

// Normalize treats grid[0] as the header row and every later row as data.
func (n *ColumnNormalizer) Normalize(grid [][]string) (*Table, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}

	idx := ClassifyHeaders(grid[0], n.opts.Rules)
	_, hasDebit := idx[ColumnDebit]
	_, hasCredit := idx[ColumnCredit]
	amountIdx, hasAmount := idx[ColumnAmount]
	synthesize := hasAmount && !hasDebit && !hasCredit

	table := &Table{}
	for _, col := range CanonicalOrder {
		_, present := idx[col]
		if present || (synthesize && (col == ColumnDebit || col == ColumnCredit)) {
			table.Columns = append(table.Columns, col)
		}
	}

	dateIdx, hasDate := idx[ColumnDate]
	if !hasDate {
		table.Warnings = append(table.Warnings, "no date column: rows are kept without date validation")
		n.logger.Warn("statement grid has no date column; rows cannot be validated",
			slog.Any("headers", grid[0]),
		)
	}

	cell := func(row []string, c Column) (string, bool) {
		i, ok := idx[c]
		if !ok || i >= len(row) {
			return "", ok
		}
		return strings.TrimSpace(row[i]), true
	}

	for r, raw := range grid[1:] {
		line := r + 2
		if isBlank(raw) {
			continue
		}

		row := Row{Line: line}

		if hasDate {
			value := ""
			if dateIdx < len(raw) {
				value = strings.TrimSpace(raw[dateIdx])
			}
			d, ok := n.opts.Dates.Parse(value)
			if !ok {
				table.Dropped = append(table.Dropped, parser.ParseError{
					Row:     line,
					Column:  string(ColumnDate),
					Message: "invalid date",
					RawData: value,
				})
				continue
			}
			row.Date, row.HasDate = d, true
		}

		if v, ok := cell(raw, ColumnDescription); ok {
			row.Description = strings.Join(strings.Fields(v), " ")
		}

		if synthesize {
			v := ""
			if amountIdx < len(raw) {
				v = raw[amountIdx]
			}
			amount := parser.ParseAmountWith(v, n.opts.Amounts).Value
			if amount < 0 {
				row.Debit = -amount
			} else {
				row.Credit = amount
			}
		} else {
			if v, ok := cell(raw, ColumnDebit); ok {
				row.Debit = math.Abs(parser.ParseAmountWith(v, n.opts.Amounts).Value)
			}
			if v, ok := cell(raw, ColumnCredit); ok {
				row.Credit = math.Abs(parser.ParseAmountWith(v, n.opts.Amounts).Value)
			}
		}

		if v, ok := cell(raw, ColumnBalance); ok {
			if b := parser.ParseAmountWith(v, n.opts.Amounts); b.OK {
				balance := b.Value
				row.Balance = &balance
			}
		}

		table.Rows = append(table.Rows, row)
	}

	if len(table.Dropped) > 0 {
		n.logger.Warn("dropped rows with unparseable dates",
			slog.Int("dropped", len(table.Dropped)),
			slog.Int("kept", len(table.Rows)),
		)
	}

	return table, nil
}

// String renders the column layout, e.g. "date,description,debit".
func (t *Table) String() string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = string(c)
	}
	return fmt.Sprintf("%s (%d rows)", strings.Join(names, ","), len(t.Rows))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
