package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// ForecastModel fits a series and extends it by horizon steps.
type ForecastModel interface {
	Name() string
	FitForecast(y []float64, horizon int) ([]float64, error)
}

// Holt is double exponential smoothing with an additive trend and no
// seasonality. The smoothing weights and the initial level and trend are all
// fitted by minimizing the one-step-ahead squared error.
type Holt struct {
	// MaxEvaluations bounds each Nelder-Mead search.
	MaxEvaluations int
}

// HoltFit holds fitted parameters and the final state.
type HoltFit struct {
	Alpha        float64
	Beta         float64
	InitialLevel float64
	InitialTrend float64
	Level        float64
	Trend        float64
	SSE          float64
}

func (Holt) Name() string { return "holt-additive" }

// FitForecast fits y and returns horizon forecasts.
func (h Holt) FitForecast(y []float64, horizon int) ([]float64, error) {
	fit, err := h.Fit(y)
	if err != nil {
		return nil, err
	}
	return fit.Forecast(horizon), nil
}

// maxRestarts bounds how often Nelder-Mead is restarted from its own result
// while it keeps improving.
const maxRestarts = 3

// Fit estimates alpha, beta and the initial state. A coarse grid picks the
// starting point, then Nelder-Mead refines all four parameters. Weights are
// searched on the logit scale so they stay in (0, 1); initial states are
// searched in units of the series spread.
func (h Holt) Fit(y []float64) (HoltFit, error) {
	if len(y) < 2 {
		return HoltFit{}, fmt.Errorf("%w: need at least 2 observations", ErrModelFit)
	}

	best := gridStart(y)
	if math.IsInf(best.SSE, 1) || math.IsNaN(best.SSE) {
		return HoltFit{}, fmt.Errorf("%w: no finite error on the parameter grid", ErrModelFit)
	}

	evals := h.MaxEvaluations
	if evals <= 0 {
		evals = 4000
	}
	scale := spread(y)
	run := func(x []float64) HoltFit {
		return holtRun(y, logistic(x[0]), logistic(x[1]), x[2]*scale, x[3]*scale)
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse := run(x).SSE
			if math.IsNaN(sse) {
				return math.Inf(1)
			}
			return sse
		},
	}

	x := []float64{logit(best.Alpha), logit(best.Beta), best.InitialLevel / scale, best.InitialTrend / scale}
	for range maxRestarts {
		result, err := optimize.Minimize(problem, x,
			&optimize.Settings{FuncEvaluations: evals},
			&optimize.NelderMead{SimplexSize: 0.25})
		// An evaluation limit still leaves a usable best point.
		if result == nil || !(result.F < best.SSE) {
			break
		}
		improved := best.SSE - result.F
		best = run(result.X)
		x = result.X
		if err != nil || improved <= 1e-9*math.Max(best.SSE, 1) {
			break
		}
	}

	if !finite(best.Level) || !finite(best.Trend) {
		return HoltFit{}, fmt.Errorf("%w: non-finite state", ErrModelFit)
	}
	return best, nil
}

// Forecast extends the fitted state: level + k*trend for k = 1..horizon.
func (f HoltFit) Forecast(horizon int) []float64 {
	out := make([]float64, max(horizon, 0))
	for k := range out {
		out[k] = f.Level + float64(k+1)*f.Trend
	}
	return out
}

var gridWeights = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95}

// gridStart returns the best weight pair on the grid for two initial states:
// a flat start at y[0], and a start whose trend is y[1]-y[0] and whose first
// prediction is exactly y[0].
func gridStart(y []float64) HoltFit {
	slope := y[1] - y[0]
	starts := [][2]float64{
		{y[0], 0},
		{y[0] - slope, slope},
	}

	best := HoltFit{SSE: math.Inf(1)}
	for _, st := range starts {
		for _, a := range gridWeights {
			for _, b := range gridWeights {
				if fit := holtRun(y, a, b, st[0], st[1]); fit.SSE < best.SSE {
					best = fit
				}
			}
		}
	}
	return best
}

// holtRun applies the recursions from level l0 and trend b0, accumulating
// the squared one-step error over every observation.
func holtRun(y []float64, alpha, beta, l0, b0 float64) HoltFit {
	level, trend := l0, b0
	var sse float64
	for _, obs := range y {
		predicted := level + trend
		residual := obs - predicted
		sse += residual * residual

		prevLevel := level
		level = alpha*obs + (1-alpha)*predicted
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return HoltFit{
		Alpha: alpha, Beta: beta,
		InitialLevel: l0, InitialTrend: b0,
		Level: level, Trend: trend,
		SSE: sse,
	}
}

// spread is the population standard deviation of y, or 1 when y is flat.
func spread(y []float64) float64 {
	_, std := stat.PopMeanStdDev(y, nil)
	if !(std > 0) || !finite(std) {
		return 1
	}
	return std
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
