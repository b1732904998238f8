package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// DefaultHorizon is the number of days forecast when none is configured.
const DefaultHorizon = 30

// MinDays is the shortest history a model is fitted on.
const MinDays = 3

// MaxHistoryDays is the longest history a model is fitted on. Longer spans
// almost always come from a misread year.
const MaxHistoryDays = 10 * 366

var (
	ErrNoData           = errors.New("no transactions to forecast")
	ErrInsufficientData = errors.New("not enough daily history to forecast")
	ErrDegenerateSeries = errors.New("daily series is constant")
	ErrModelFit         = errors.New("forecast model fit failed")
	ErrInvalidHorizon   = errors.New("forecast horizon must not be negative")
	ErrSpanTooLong      = errors.New("daily history spans too many days")
)

// Result is a fitted forecast with the history it was fitted on.
type Result struct {
	Model   string
	History Series
	Points  []Point
}

// Forecaster turns a ledger into a daily cash-flow forecast.
type Forecaster struct {
	model  ForecastModel
	logger *slog.Logger
}

// NewForecaster wraps a model.
func NewForecaster(model ForecastModel, logger *slog.Logger) *Forecaster {
	return &Forecaster{model: model, logger: logger}
}

// NewDefaultForecaster uses the Holt additive-trend model.
func NewDefaultForecaster(logger *slog.Logger) *Forecaster {
	return NewForecaster(Holt{}, logger)
}

// Forecast aggregates txs per day and projects horizon days past the last
// transaction date. Failures are returned as named errors, never replaced by
// a fallback forecast.
func (f *Forecaster) Forecast(ctx context.Context, txs []ledger.Transaction, horizon int) (*Result, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	if len(txs) == 0 {
		return nil, ErrNoData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if span := SpanDays(txs); span > MaxHistoryDays {
		first, last, _ := ledger.DateRange(txs)
		return nil, fmt.Errorf("%w: %d days from %s to %s, limit %d", ErrSpanTooLong, span,
			first.Format(time.DateOnly), last.Format(time.DateOnly), MaxHistoryDays)
	}

	series := NewSeries(txs)
	if series.Len() < MinDays {
		return nil, fmt.Errorf("%w: %d days, need %d", ErrInsufficientData, series.Len(), MinDays)
	}
	if series.IsConstant() {
		return nil, fmt.Errorf("%w: every day is %v", ErrDegenerateSeries, series.Values[0])
	}

	values, err := f.model.FitForecast(series.Values, horizon)
	if err != nil {
		if errors.Is(err, ErrModelFit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrModelFit, err)
	}
	if len(values) != horizon {
		return nil, fmt.Errorf("%w: %s returned %d values for horizon %d", ErrModelFit, f.model.Name(), len(values), horizon)
	}

	points := make([]Point, horizon)
	for i, v := range values {
		if !finite(v) {
			return nil, fmt.Errorf("%w: non-finite forecast at step %d", ErrModelFit, i+1)
		}
		points[i] = Point{Date: series.End().AddDate(0, 0, i+1), Value: v}
	}

	f.logger.Info("forecast complete",
		slog.String("model", f.model.Name()),
		slog.Int("history_days", series.Len()),
		slog.Int("horizon", horizon))
	return &Result{Model: f.model.Name(), History: series, Points: points}, nil
}
