package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectConfig(t *testing.T) {
	t.Run("skips bank preamble", func(t *testing.T) {
		data := "\uFEFFFirst Bank of Testing\nAccount: 1234\n\nDate;Narration;Debit;Credit;Balance\n01/02/2023;Rent;900,00;;1.100,00\n"

		cfg, err := DetectConfig([]byte(data))
		require.NoError(t, err)

		assert.Equal(t, ';', cfg.Delimiter)
		assert.Equal(t, 3, cfg.SkipLines)
		assert.Equal(t, []string{"Date", "Narration", "Debit", "Credit", "Balance"}, cfg.Headers)
		require.Len(t, cfg.SampleRows, 1)
		assert.Equal(t, "Rent", cfg.SampleRows[0][1])
	})

	t.Run("comma separated without preamble", func(t *testing.T) {
		data := "Date,Description,Amount\n2023-01-01,Coffee,-4.50\n2023-01-02,Salary,1000.00\n"

		cfg, err := DetectConfig([]byte(data))
		require.NoError(t, err)

		assert.Equal(t, ',', cfg.Delimiter)
		assert.Equal(t, 0, cfg.SkipLines)
		assert.Len(t, cfg.SampleRows, 2)
	})

	t.Run("falls back to widest line", func(t *testing.T) {
		data := "a|b|c|d\n1|2|3|4\n"

		cfg, err := DetectConfig([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, '|', cfg.Delimiter)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := DetectConfig([]byte("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("no headers", func(t *testing.T) {
		_, err := DetectConfig([]byte("just some prose\nwithout delimiters\n"))
		assert.ErrorIs(t, err, ErrNoHeadersFound)
	})
}

func TestDetectConfigWithOptions(t *testing.T) {
	data := "x\ty\nDate\tDescription\tAmount\n"

	cfg, err := DetectConfigWithOptions([]byte(data), &DetectOptions{HeaderRowIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, '\t', cfg.Delimiter)
	assert.Equal(t, 1, cfg.SkipLines)

	_, err = DetectConfigWithOptions([]byte(data), &DetectOptions{HeaderRowIndex: 10})
	assert.ErrorIs(t, err, ErrNoHeadersFound)

	_, err = DetectConfigWithOptions([]byte("nodelims\n"), &DetectOptions{HeaderRowIndex: 0})
	assert.ErrorIs(t, err, ErrInvalidDelimiter)
}

func TestProbeDialect(t *testing.T) {
	tests := []struct {
		name        string
		rows        [][]string
		wantComma   bool
		wantDay     bool
		wantHint    string
		minConfiden float64
	}{
		{
			name:        "european",
			rows:        [][]string{{"15/01/2024", "Café", "1.234,56 €"}, {"16/01/2024", "Rent", "-900,00"}},
			wantComma:   true,
			wantDay:     true,
			wantHint:    "EUR",
			minConfiden: 0.99,
		},
		{
			name:        "us",
			rows:        [][]string{{"01/15/2024", "Coffee", "$1,234.56"}, {"01/16/2024", "Gas", "-45.00"}},
			wantComma:   false,
			wantDay:     false,
			wantHint:    "USD",
			minConfiden: 0.99,
		},
		{
			name:        "no numbers",
			rows:        [][]string{{"hello", "world"}},
			minConfiden: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ProbeDialect(tt.rows)
			assert.Equal(t, tt.wantComma, d.DecimalComma)
			assert.Equal(t, tt.wantDay, d.DayFirst)
			assert.Equal(t, tt.wantHint, d.CurrencyHint)
			assert.GreaterOrEqual(t, d.Confidence, tt.minConfiden)
		})
	}
}

func TestAnalyzeAmountFormat(t *testing.T) {
	assert.Equal(t, 1, analyzeAmountFormat("1.234,56"))
	assert.Equal(t, -1, analyzeAmountFormat("1,234.56"))
	assert.Equal(t, 1, analyzeAmountFormat("4,50"))
	assert.Equal(t, -1, analyzeAmountFormat("(4.50)"))
	assert.Equal(t, 0, analyzeAmountFormat("1,234"))
	assert.Equal(t, 0, analyzeAmountFormat("Rent"))
	assert.Equal(t, 0, analyzeAmountFormat("Page 2.1"))
}
