package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned for workbooks without a usable sheet.
var ErrNoSheet = errors.New("no suitable sheet found")

// ReadExcelGrid returns the raw cell grid of the most likely transaction
// sheet. Row 0 is whatever the sheet's first row is; header detection is
// left to the caller.
func ReadExcelGrid(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findTransactionSheet(f)
	if sheetName == "" {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	return rows, nil
}

// findTransactionSheet finds the best sheet for transaction data
func findTransactionSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"transactions", "statement", "ledger", "data", "sheet1",
	}

	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}

// ReadCSVGrid reads a delimited file into a grid after skipping preamble
// lines. A zero delimiter means comma.
func ReadCSVGrid(reader io.Reader, delimiter rune, skip int) ([][]string, error) {
	if skip > 0 {
		reader = skipLines(reader, skip)
	}

	csvReader := csv.NewReader(reader)
	if delimiter != 0 {
		csvReader.Comma = delimiter
	}
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}
