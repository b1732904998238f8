// Package forecast projects daily net cash flow forward from the ledger.
package forecast

import (
	"time"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/pkg/money"
)

// Series is a contiguous run of daily totals starting at Start. Days without
// transactions hold zero.
type Series struct {
	Start  time.Time
	Values []float64
}

// Point is one dated value.
type Point struct {
	Date  time.Time
	Value float64
}

// NewSeries sums signed amounts per calendar day over [first, last].
func NewSeries(txs []ledger.Transaction) Series {
	first, last, ok := ledger.DateRange(txs)
	if !ok {
		return Series{}
	}
	first, last = ledger.Day(first), ledger.Day(last)

	days := daysBetween(first, last) + 1
	buckets := make([][]float64, days)
	for _, tx := range txs {
		i := daysBetween(first, tx.Date)
		buckets[i] = append(buckets[i], tx.Amount)
	}

	values := make([]float64, days)
	for i, amounts := range buckets {
		if len(amounts) > 0 {
			values[i] = money.Sum(amounts...).InexactFloat64()
		}
	}
	return Series{Start: first, Values: values}
}

// SpanDays returns how many calendar days [first, last] of txs covers, or 0
// for an empty collection.
func SpanDays(txs []ledger.Transaction) int {
	first, last, ok := ledger.DateRange(txs)
	if !ok {
		return 0
	}
	return daysBetween(first, last) + 1
}

// daysBetween counts calendar days from the day of a to the day of b. It
// works on Unix seconds because time.Duration saturates after about 292
// years, which a mistyped statement year easily exceeds.
func daysBetween(a, b time.Time) int {
	return int((ledger.Day(b).Unix() - ledger.Day(a).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// Len returns the number of days covered.
func (s Series) Len() int { return len(s.Values) }

// Date returns the calendar day of index i.
func (s Series) Date(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// End returns the last day covered. It is the zero time for an empty series.
func (s Series) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.Date(len(s.Values) - 1)
}

// Points returns the series as dated values.
func (s Series) Points() []Point {
	points := make([]Point, len(s.Values))
	for i, v := range s.Values {
		points[i] = Point{Date: s.Date(i), Value: v}
	}
	return points
}

// IsConstant reports whether every value is equal.
func (s Series) IsConstant() bool {
	for _, v := range s.Values[1:] {
		if v != s.Values[0] {
			return false
		}
	}
	return true
}
