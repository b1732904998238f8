package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger/ledgertest"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tx(offset int, amount float64) ledger.Transaction {
	return ledger.NewTextTransaction(day0.AddDate(0, 0, offset), "entry", amount)
}

func TestNewSeries_ZeroFillsAndSums(t *testing.T) {
	s := NewSeries([]ledger.Transaction{
		tx(3, 10),
		tx(0, 5.10),
		tx(0, 0.20),
		tx(3, -2.5),
	})

	assert.Equal(t, day0, s.Start)
	assert.Equal(t, []float64{5.3, 0, 0, 7.5}, s.Values)
	assert.Equal(t, day0.AddDate(0, 0, 3), s.End())
	assert.Equal(t, 4, s.Len())

	points := s.Points()
	require.Len(t, points, 4)
	assert.Equal(t, day0.AddDate(0, 0, 1), points[1].Date)
}

func TestNewSeries_Empty(t *testing.T) {
	s := NewSeries(nil)
	assert.Zero(t, s.Len())
	assert.True(t, s.End().IsZero())
}

func TestNewSeries_CenturiesApart(t *testing.T) {
	// A misread year puts the first entry centuries before the rest.
	first := time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []ledger.Transaction{
		ledger.NewTextTransaction(first, "typo", 1),
		ledger.NewTextTransaction(last, "entry", 2),
	}

	s := NewSeries(txs)
	wantDays := int(last.Unix()-first.Unix())/(24*60*60) + 1
	assert.Equal(t, wantDays, s.Len())
	assert.Equal(t, wantDays, SpanDays(txs))
	assert.Equal(t, first, s.Start)
	assert.Equal(t, last, s.End())
	assert.Equal(t, 1.0, s.Values[0])
	assert.Equal(t, 2.0, s.Values[s.Len()-1])
}

func TestHolt_FitsLinearTrend(t *testing.T) {
	y := make([]float64, 50)
	for i := range y {
		y[i] = 100 + 2*float64(i)
	}

	fit, err := Holt{}.Fit(y)
	require.NoError(t, err)
	assert.InDelta(t, 0, fit.SSE, 1e-6)

	got := fit.Forecast(3)
	require.Len(t, got, 3)
	assert.InDelta(t, 200, got[0], 1e-6)
	assert.InDelta(t, 202, got[1], 1e-6)
	assert.InDelta(t, 204, got[2], 1e-6)
}

func TestHolt_WeightsStayInUnitInterval(t *testing.T) {
	gen := ledgertest.New(11)
	y := make([]float64, 80)
	for i := range y {
		y[i] = gen.Amount(300)
	}

	fit, err := Holt{}.Fit(y)
	require.NoError(t, err)
	assert.Greater(t, fit.Alpha, 0.0)
	assert.LessOrEqual(t, fit.Alpha, 1.0)
	assert.Greater(t, fit.Beta, 0.0)
	assert.LessOrEqual(t, fit.Beta, 1.0)

	// The refined fit is never worse than the best grid point.
	assert.LessOrEqual(t, fit.SSE, gridStart(y).SSE)
}

func TestHolt_EstimatesInitialState(t *testing.T) {
	// One deposit every fifth day on top of daily spending: the mean is -20
	// and there is no trend.
	y := make([]float64, 100)
	for i := range y {
		if i%5 == 0 {
			y[i] = 100
		} else {
			y[i] = -50
		}
	}

	fit, err := Holt{}.Fit(y)
	require.NoError(t, err)

	// A flat -20 line scores 360000; a fit locked to y[0] as its starting
	// level chases the first deposit and does roughly twice as badly.
	assert.Less(t, fit.SSE, 380000.0)
	assert.Less(t, fit.SSE, gridStart(y).SSE)

	got := fit.Forecast(DefaultHorizon)
	require.Len(t, got, DefaultHorizon)
	assert.InDelta(t, -20, got[0], 30)
	assert.InDelta(t, -20, got[DefaultHorizon-1], 30)
}

func TestHolt_TooShort(t *testing.T) {
	_, err := Holt{}.Fit([]float64{1})
	assert.ErrorIs(t, err, ErrModelFit)
}

func TestForecaster_HundredDays(t *testing.T) {
	txs := ledgertest.New(5).Transactions(day0, 100)

	result, err := NewDefaultForecaster(discardLogger()).Forecast(context.Background(), txs, DefaultHorizon)
	require.NoError(t, err)
	require.Len(t, result.Points, 30)
	assert.Equal(t, "holt-additive", result.Model)
	assert.Equal(t, 100, result.History.Len())

	lastHistorical := day0.AddDate(0, 0, 99)
	for i, p := range result.Points {
		assert.Equal(t, lastHistorical.AddDate(0, 0, i+1), p.Date)
		assert.False(t, math.IsNaN(p.Value))
	}
}

func TestForecaster_Errors(t *testing.T) {
	f := NewDefaultForecaster(discardLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		txs     []ledger.Transaction
		horizon int
		want    error
	}{
		{"no data", nil, 30, ErrNoData},
		{"negative horizon", []ledger.Transaction{tx(0, 1)}, -1, ErrInvalidHorizon},
		{"two days", []ledger.Transaction{tx(0, 1), tx(1, 2)}, 30, ErrInsufficientData},
		{"one day many txs", []ledger.Transaction{tx(0, 1), tx(0, 2), tx(0, 3)}, 30, ErrInsufficientData},
		{"constant", []ledger.Transaction{tx(0, 5), tx(1, 5), tx(2, 5), tx(3, 5)}, 30, ErrDegenerateSeries},
		{"misread year", []ledger.Transaction{tx(0, 1), tx(1, 4), tx(-300*366, 2)}, 30, ErrSpanTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Forecast(ctx, tt.txs, tt.horizon)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestForecaster_ZeroHorizon(t *testing.T) {
	txs := []ledger.Transaction{tx(0, 1), tx(1, 4), tx(2, 2)}
	result, err := NewDefaultForecaster(discardLogger()).Forecast(context.Background(), txs, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Points)
}

type failingModel struct{ err error }

func (failingModel) Name() string { return "failing" }
func (m failingModel) FitForecast([]float64, int) ([]float64, error) {
	return nil, m.err
}

type nanModel struct{}

func (nanModel) Name() string { return "nan" }
func (nanModel) FitForecast(_ []float64, h int) ([]float64, error) {
	out := make([]float64, h)
	out[0] = math.NaN()
	return out, nil
}

func TestForecaster_ModelFailuresAreSurfaced(t *testing.T) {
	txs := []ledger.Transaction{tx(0, 1), tx(1, 4), tx(2, 2)}
	ctx := context.Background()

	_, err := NewForecaster(failingModel{err: errors.New("singular")}, discardLogger()).Forecast(ctx, txs, 5)
	assert.ErrorIs(t, err, ErrModelFit)
	assert.ErrorContains(t, err, "singular")

	_, err = NewForecaster(nanModel{}, discardLogger()).Forecast(ctx, txs, 5)
	assert.ErrorIs(t, err, ErrModelFit)
}
