// Package service orchestrates statement ingestion: it loads text units or a
// table file, runs the matching parser, and reports what was dropped along
// the way without failing the whole import.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/statement-insights/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/pkg/metrics"
)

var (
	ErrNoInput          = errors.New("no statement input found")
	ErrNoTransactions   = errors.New("no transactions could be extracted")
	ErrUnsupportedTable = errors.New("unsupported table format")
)

// Drop reasons used for metrics labels.
const (
	dropInvalidDate   = "invalid_date"
	dropInvalidAmount = "invalid_amount"
	dropReadError     = "read_error"
	dropParseMiss     = "parse_miss"
)

// dropReason maps the column a record failed on to its metrics label.
func dropReason(column string) string {
	switch column {
	case "date":
		return dropInvalidDate
	case "amount", "debit", "credit", "balance":
		return dropInvalidAmount
	case parser.ColumnFile:
		return dropReadError
	default:
		return "invalid_" + column
	}
}

// recordDropped counts dropped records under their per-column reason.
func (s *ImportService) recordDropped(dropped []parser.ParseError) {
	counts := make(map[string]int)
	for _, d := range dropped {
		counts[dropReason(d.Column)]++
	}
	for reason, n := range counts {
		s.metrics.RowsDropped(reason, n)
	}
}

// decimalCommaConfidence is the dialect confidence needed before amounts are
// read with a decimal comma.
const decimalCommaConfidence = 0.75

// Result is the ledger produced by one ingestion with its diagnostics.
type Result struct {
	Transactions []ledger.Transaction
	// Units is set for text ingestion, one entry per unit in input order.
	Units []parser.UnitResult
	// Dropped lists records that matched but could not be converted, and
	// unit files that could not be read.
	Dropped  []parser.ParseError
	Warnings []string
	// Currency is a hint from symbols seen in the input, empty if none.
	Currency string
	// Pages holds the readable text units, in input order.
	Pages []parser.Unit
}

// Options configures the service.
type Options struct {
	// Workers bounds concurrent unit parsing; zero uses GOMAXPROCS.
	Workers int
	Dates   parser.DateParser
	Headers []normalizer.HeaderRule
}

// ImportService runs the text and table ingestion paths.
type ImportService struct {
	text    *parser.TextParser
	opts    Options
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(text *parser.TextParser, rec *metrics.Recorder, logger *slog.Logger, opts Options) *ImportService {
	return &ImportService{text: text, opts: opts, metrics: rec, logger: logger}
}

// LoadText parses every .txt unit in dir. Unreadable files are reported
// per unit; the input only counts as missing when nothing could be read.
func (s *ImportService) LoadText(ctx context.Context, dir string) (*Result, error) {
	units, err := parser.LoadUnits(dir)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no .txt files in %s", ErrNoInput, dir)
	}
	if len(parser.Readable(units)) == 0 {
		return nil, fmt.Errorf("%w: none of %d .txt files in %s could be read: %w",
			ErrNoInput, len(units), dir, units[0].Err)
	}
	return s.ParseUnits(ctx, units)
}

// ParseUnits parses units concurrently. Units without matches are reported
// in the result; only an empty overall ledger is an error.
func (s *ImportService) ParseUnits(ctx context.Context, units []parser.Unit) (*Result, error) {
	ctx, span := metrics.Tracer().Start(ctx, "import.ParseUnits")
	defer span.End()

	if len(units) == 0 {
		return nil, ErrNoInput
	}

	batch, err := s.text.ParseUnits(ctx, units, s.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("parse units: %w", err)
	}

	for _, u := range batch.Units {
		s.metrics.UnitParsed(u.Strategy)
	}
	missed := batch.Missed()
	unreadable := batch.Unreadable()
	dropped := batch.Errors()
	s.metrics.RowsDropped(dropParseMiss, len(missed))
	s.recordDropped(dropped)
	s.metrics.TransactionsExtracted(ledger.SourceText.String(), len(batch.Transactions))

	span.SetAttributes(
		attribute.Int("units", len(units)),
		attribute.Int("units_missed", len(missed)),
		attribute.Int("units_unreadable", len(unreadable)),
		attribute.Int("transactions", len(batch.Transactions)),
	)

	s.logger.Info("parsed statement text",
		slog.Int("units", len(units)),
		slog.Int("units_missed", len(missed)),
		slog.Int("units_unreadable", len(unreadable)),
		slog.Int("transactions", len(batch.Transactions)),
		slog.Int("dropped", len(dropped)),
	)

	result := &Result{
		Transactions: batch.Transactions,
		Units:        batch.Units,
		Dropped:      dropped,
		Currency:     currencyHint(units),
		Pages:        parser.Readable(units),
	}
	for _, u := range batch.Units {
		switch {
		case u.ReadErr != nil:
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: unreadable: %v", u.Unit, u.ReadErr))
		case u.Missed():
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: no transactions found", u.Unit))
		}
	}

	if len(result.Transactions) == 0 {
		return result, ErrNoTransactions
	}
	return result, nil
}

// LoadTable reads a .csv or .xlsx statement file.
func (s *ImportService) LoadTable(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoInput, path)
		}
		return nil, fmt.Errorf("read table: %w", err)
	}
	return s.ParseTable(ctx, filepath.Base(path), data)
}

// ParseTable normalizes a table file chosen by the extension of name.
func (s *ImportService) ParseTable(ctx context.Context, name string, data []byte) (*Result, error) {
	_, span := metrics.Tracer().Start(ctx, "import.ParseTable")
	defer span.End()
	span.SetAttributes(attribute.String("file", name))

	var (
		grid    [][]string
		dialect *sniffer.RegionalDialect
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		grid, dialect, err = readDelimited(data)
	case ".xlsx", ".xlsm":
		grid, err = parser.ReadExcelGrid(bytes.NewReader(data))
		if err == nil && len(grid) > 1 {
			dialect = sniffer.ProbeDialect(grid[1:min(len(grid), 11)])
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTable, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	opts := normalizer.Options{Rules: s.opts.Headers, Dates: s.opts.Dates}
	result := &Result{}
	if dialect != nil {
		if dialect.DecimalComma && dialect.Confidence >= decimalCommaConfidence {
			opts.Amounts.DecimalComma = true
			result.Warnings = append(result.Warnings, "amounts read with decimal comma")
		}
		result.Currency = dialect.CurrencyHint
	}
	if result.Currency == "" {
		result.Currency, _ = detectCurrencyFromSymbols(string(data))
	}

	table, err := normalizer.NewColumnNormalizer(s.logger, opts).Normalize(grid)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", name, err)
	}

	result.Transactions = table.Transactions(name)
	result.Dropped = table.Dropped
	result.Warnings = append(result.Warnings, table.Warnings...)

	s.metrics.UnitParsed("table")
	s.recordDropped(table.Dropped)
	s.metrics.TransactionsExtracted(ledger.SourceTable.String(), len(result.Transactions))

	s.logger.Info("normalized statement table",
		slog.String("file", name),
		slog.Any("columns", table.Columns),
		slog.Int("rows", len(table.Rows)),
		slog.Int("dropped", len(table.Dropped)),
		slog.Int("transactions", len(result.Transactions)),
	)

	if len(result.Transactions) == 0 {
		return result, ErrNoTransactions
	}
	return result, nil
}

func readDelimited(data []byte) ([][]string, *sniffer.RegionalDialect, error) {
	data = normalizeCSVBytes(data)
	cfg, err := sniffer.DetectConfig(data)
	if err != nil {
		return nil, nil, err
	}
	grid, err := parser.ReadCSVGrid(bytes.NewReader(data), cfg.Delimiter, cfg.SkipLines)
	if err != nil {
		return nil, nil, err
	}
	return grid, sniffer.ProbeDialect(cfg.SampleRows), nil
}

func normalizeCSVBytes(data []byte) []byte {
	data = stripUTF8BOM(data)
	if utf8.Valid(data) {
		return data
	}
	return decodeLatin1(data)
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}

func currencyHint(units []parser.Unit) string {
	for _, u := range units {
		if code, ok := detectCurrencyFromSymbols(u.Text); ok {
			return code
		}
	}
	return ""
}

func detectCurrencyFromSymbols(value string) (string, bool) {
	switch {
	case strings.Contains(value, "€"):
		return "EUR", true
	case strings.Contains(value, "£"):
		return "GBP", true
	case strings.Contains(value, "¥") || strings.Contains(value, "￥"):
		return "JPY", true
	case strings.Contains(value, "₹"):
		return "INR", true
	case strings.Contains(value, "$"):
		return "USD", true
	}
	return "", false
}
