// Package parser turns raw statement content into ledger transactions. It
// covers free-text pages (regex strategies), tabular grids from CSV and
// Excel files, and page text extraction from PDFs.
package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// ParseError represents a record that matched but could not be converted
type ParseError struct {
	Unit    string
	Row     int
	Column  string
	Message string
	RawData string
}

func (e ParseError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s row %d, column %s: %s", e.Unit, e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// ColumnFile marks a ParseError for a unit whose file could not be read.
const ColumnFile = "file"

// Unit is one independently parsed piece of text, usually a PDF page.
type Unit struct {
	Name string
	Text string
	// Err is set when the unit's file could not be read. Such a unit is
	// reported but never parsed.
	Err error
}

// UnitResult contains the outcome of parsing a single unit
type UnitResult struct {
	Unit string
	// Strategy names the strategy that matched; empty on a parse miss.
	Strategy     string
	Transactions []ledger.Transaction
	Errors       []ParseError
	// ReadErr is the unit's read failure, if any.
	ReadErr error
}

// Missed reports whether the unit was read but no strategy matched it.
func (r UnitResult) Missed() bool {
	return r.Strategy == "" && r.ReadErr == nil
}

// cleanDescription normalizes a transaction description: trims and collapses
// any run of whitespace, including line breaks, to one space.
func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// skipLines returns a reader that skips the first n lines
func skipLines(r io.Reader, n int) io.Reader {
	return &lineSkipper{reader: r, skip: n}
}

type lineSkipper struct {
	reader  io.Reader
	skip    int
	skipped bool
}

func (ls *lineSkipper) Read(p []byte) (int, error) {
	if !ls.skipped {
		buf := make([]byte, 1)
		lines := 0
		for lines < ls.skip {
			n, err := ls.reader.Read(buf)
			if err != nil {
				return 0, err
			}
			if n > 0 && buf[0] == '\n' {
				lines++
			}
		}
		ls.skipped = true
	}
	return ls.reader.Read(p)
}
