package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func series(n int, f func(int) float64) []Point {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{Time: start.AddDate(0, 0, i), Value: f(i)}
	}
	return points
}

func TestAnomalyScatter(t *testing.T) {
	var marks []Mark
	for i, p := range series(20, func(i int) float64 { return float64(i%5) * 10 }) {
		group := "Expense"
		if i%2 == 0 {
			group = "Deposit"
		}
		marks = append(marks, Mark{Point: p, Group: group, Highlight: i == 7})
	}

	img, err := AnomalyScatter("Transaction Amounts with Anomalies", marks, Size{Width: 4 * vg.Inch, Height: 3 * vg.Inch})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(img, pngMagic))

	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestForecastPlot(t *testing.T) {
	history := series(30, func(i int) float64 { return float64(i) })
	forecast := series(40, func(i int) float64 { return float64(i) })[30:]

	img, err := ForecastPlot("Cash Flow Forecast", history, forecast, Size{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestEmptyInputs(t *testing.T) {
	_, err := AnomalyScatter("x", nil, Size{})
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = ForecastPlot("x", nil, nil, Size{})
	assert.ErrorIs(t, err, ErrNoPoints)
}
