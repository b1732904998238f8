// Package sniffer inspects delimited statement exports before they are
// read: it finds the delimiter, skips bank preamble lines to the header row,
// and probes whether amounts use a decimal comma.
package sniffer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Header keywords seen in statement exports
var headerKeywords = []string{
	"date", "posted", "value date",
	"description", "desc", "narration", "particulars", "details", "memo",
	"debit", "withdrawal", "credit", "deposit",
	"amount", "balance", "bal",
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// FileConfig holds the detected layout of a delimited file
type FileConfig struct {
	Delimiter  rune       // The field delimiter (';', ',', '\t', '|')
	SkipLines  int        // Preamble lines before the header row
	Headers    []string   // Header cells, trimmed
	SampleRows [][]string // First few data rows
}

// DetectOptions allows callers to override header row or delimiter detection.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based index for the header row. Set to -1 to auto-detect.
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero.
	Delimiter rune
}

// DetectConfig analyzes a delimited file and returns its layout
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, nil)
}

// DetectConfigWithOptions analyzes a delimited file with optional overrides.
func DetectConfigWithOptions(data []byte, opts *DetectOptions) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	var (
		delimiter rune
		skipLines int
		err       error
	)
	if opts != nil && opts.HeaderRowIndex >= 0 {
		if opts.HeaderRowIndex >= len(lines) {
			return nil, ErrNoHeadersFound
		}
		skipLines = opts.HeaderRowIndex
		delimiter = opts.Delimiter
		if delimiter == 0 {
			delimiter, _ = detectDelimiter(cleanLine(lines[skipLines], skipLines == 0))
			if delimiter == 0 {
				return nil, ErrInvalidDelimiter
			}
		}
	} else {
		delimiter, skipLines, err = findHeaderRow(lines)
		if err != nil {
			return nil, err
		}
		if opts != nil && opts.Delimiter != 0 {
			delimiter = opts.Delimiter
		}
	}

	reader := csv.NewReader(strings.NewReader(cleanLine(lines[skipLines], skipLines == 0)))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:  delimiter,
		SkipLines:  skipLines,
		Headers:    headers,
		SampleRows: sampleRows(lines[skipLines+1:], delimiter, 10),
	}, nil
}

// findHeaderRow locates the header row and its delimiter. Lines carrying
// header keywords win; otherwise the widest line in the first 20 is used.
func findHeaderRow(lines []string) (rune, int, error) {
	bestIndex, bestDelimiter, bestScore := -1, rune(0), 0
	fallbackIndex, fallbackDelimiter, fallbackCount := -1, rune(0), 0

	for i, line := range lines {
		if i > 20 {
			break
		}

		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		lower := strings.ToLower(line)
		matches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}

		if matches > 0 {
			score := count*10 + matches
			if score > bestScore {
				bestIndex, bestDelimiter, bestScore = i, delimiter, score
			}
			continue
		}
		if count > fallbackCount {
			fallbackIndex, fallbackDelimiter, fallbackCount = i, delimiter, count
		}
	}

	// A header needs at least three columns, i.e. two delimiters.
	if bestIndex >= 0 && bestScore >= 20 {
		return bestDelimiter, bestIndex, nil
	}
	if fallbackCount >= 2 {
		return fallbackDelimiter, fallbackIndex, nil
	}
	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// sampleRows parses up to maxRows records from the lines after the header
func sampleRows(lines []string, delimiter rune, maxRows int) [][]string {
	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}
	return rows
}
