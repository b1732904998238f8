package parser

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger/ledgertest"
)

func benchmarkUnits(n, perUnit int) []Unit {
	gen := ledgertest.New(99)
	units := make([]Unit, n)
	for i := range units {
		txs := gen.Transactions(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), perUnit)
		units[i] = Unit{Name: fmt.Sprintf("page_%d.txt", i+1), Text: ledgertest.FullDateStatement(txs)}
	}
	return units
}

func BenchmarkTextParser_Parse(b *testing.B) {
	strategies, _ := DefaultStrategies(Options{ReferenceYear: 2017}, discardLogger())
	p := NewTextParser(discardLogger(), strategies...)
	unit := benchmarkUnits(1, 200)[0]

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Parse(unit)
	}
}

func BenchmarkTextParser_ParseUnits(b *testing.B) {
	strategies, _ := DefaultStrategies(Options{ReferenceYear: 2017}, discardLogger())
	p := NewTextParser(discardLogger(), strategies...)
	units := benchmarkUnits(50, 40)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.ParseUnits(context.Background(), units, 0)
	}
}

func BenchmarkParseAmount(b *testing.B) {
	inputs := []string{"$1,234.56", "(45.00)", "-45.00", "4.50", "garbage"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ParseAmount(inputs[i%len(inputs)])
	}
}

func BenchmarkParseDate(b *testing.B) {
	inputs := []string{"15/01/2024", "01/15/2024", "2024-01-15", "15.01.2024"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = ParseDate(inputs[i%len(inputs)])
	}
}
