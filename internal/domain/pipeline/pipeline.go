// Package pipeline runs a statement end to end: ingest, categorize, detect
// anomalies, chart, summarize, forecast and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/statement-insights/internal/domain/anomaly"
	"github.com/FACorreiaa/statement-insights/internal/domain/categorization"
	"github.com/FACorreiaa/statement-insights/internal/domain/forecast"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/service"
	"github.com/FACorreiaa/statement-insights/internal/domain/insights"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/internal/domain/narrative"
	"github.com/FACorreiaa/statement-insights/pkg/chart"
	"github.com/FACorreiaa/statement-insights/pkg/metrics"
	"github.com/FACorreiaa/statement-insights/pkg/money"
	"github.com/FACorreiaa/statement-insights/pkg/storage"
)

var ErrNoSource = errors.New("either a text directory or a table file is required")

// Input selects the statement source. Exactly one field is set.
type Input struct {
	TextDir   string
	TablePath string
}

// Options tunes a run.
type Options struct {
	Horizon int
	// Currency overrides the currency guessed from the input.
	Currency string
	// MetricsTextfile, when set, receives the metrics after every run.
	MetricsTextfile string
}

// Pipeline holds the stage components. Narrative is optional.
type Pipeline struct {
	importer    *service.ImportService
	categorizer *categorization.Categorizer
	detector    *anomaly.Detector
	forecaster  *forecast.Forecaster
	narrative   *narrative.Service
	store       storage.Storage
	metrics     *metrics.Recorder
	logger      *slog.Logger
	opts        Options
}

// New wires a pipeline.
func New(
	importer *service.ImportService,
	categorizer *categorization.Categorizer,
	detector *anomaly.Detector,
	forecaster *forecast.Forecaster,
	store storage.Storage,
	rec *metrics.Recorder,
	logger *slog.Logger,
	opts Options,
) *Pipeline {
	if opts.Horizon == 0 {
		opts.Horizon = forecast.DefaultHorizon
	}
	return &Pipeline{
		importer:    importer,
		categorizer: categorizer,
		detector:    detector,
		forecaster:  forecaster,
		store:       store,
		metrics:     rec,
		logger:      logger,
		opts:        opts,
	}
}

// WithNarrative enables per-unit narratives for text input.
func (p *Pipeline) WithNarrative(svc *narrative.Service) *Pipeline {
	p.narrative = svc
	return p
}

// Outcome is everything a run produced.
type Outcome struct {
	Import   *service.Result
	Ledger   []ledger.Transaction
	Forecast *forecast.Result
	// ForecastErr is set when the forecast failed; the rest of the run
	// still completes.
	ForecastErr error
	Narratives  []narrative.Result
	Report      *insights.Report
	Artifacts   []*storage.FileInfo
}

// Run executes every stage. Ingestion errors abort the run; a forecast
// failure is reported in the outcome and the report.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Outcome, error) {
	ctx, span := metrics.Tracer().Start(ctx, "pipeline.Run")
	defer span.End()

	out := &Outcome{}
	var units []parser.Unit

	err := p.stage(ctx, "ingest", func(ctx context.Context) error {
		var err error
		out.Import, units, err = p.ingest(ctx, in)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	if err := p.stage(ctx, "enrich", func(ctx context.Context) error {
		var err error
		out.Ledger, err = p.Enrich(ctx, out.Import.Transactions)
		return err
	}); err != nil {
		return out, err
	}

	currency := p.currency(out.Import)
	out.Report = insights.Build(out.Ledger, currency)

	if err := p.stage(ctx, "scatter_chart", func(ctx context.Context) error {
		info, err := p.writeScatter(ctx, out.Ledger)
		if err != nil {
			return err
		}
		out.addArtifact(info)
		return nil
	}); err != nil {
		return out, err
	}

	_ = p.stage(ctx, "forecast", func(ctx context.Context) error {
		out.Forecast, out.ForecastErr = p.forecaster.Forecast(ctx, out.Ledger, p.opts.Horizon)
		if out.ForecastErr != nil {
			p.metrics.ForecastFailed(forecastFailureKind(out.ForecastErr))
			p.logger.Warn("forecast failed", slog.Any("error", out.ForecastErr))
		}
		return out.ForecastErr
	})

	if out.Forecast != nil {
		if err := p.stage(ctx, "forecast_export", func(ctx context.Context) error {
			infos, err := p.writeForecast(ctx, out.Forecast)
			for _, info := range infos {
				out.addArtifact(info)
			}
			return err
		}); err != nil {
			return out, err
		}
		out.Report.AddNote("Forecast", forecastNote(out.Forecast, currency))
	} else {
		out.Report.AddNote("Forecast", fmt.Sprintf("Forecast unavailable: %v", out.ForecastErr))
	}

	if err := p.stage(ctx, "ledger_export", func(ctx context.Context) error {
		info, err := WriteLedgerCSV(ctx, p.store, out.Ledger)
		if err != nil {
			return err
		}
		out.addArtifact(info)
		return nil
	}); err != nil {
		return out, err
	}

	if p.narrative != nil && len(units) > 0 {
		_ = p.stage(ctx, "narrative", func(ctx context.Context) error {
			var err error
			out.Narratives, err = p.narrative.AnalyzeUnits(ctx, units)
			if err != nil {
				p.logger.Warn("narrative stopped early", slog.Any("error", err))
			}
			if len(out.Narratives) > 0 {
				out.Report.AddNote("Narrative", narrative.Render(out.Narratives))
			}
			return err
		})
	}

	if len(out.Import.Warnings) > 0 {
		out.Report.AddNote("Import warnings", strings.Join(out.Import.Warnings, "\n"))
	}

	p.metrics.Anomalies(ledger.CountAnomalies(out.Ledger))
	p.metrics.RunCompleted(time.Now())
	p.flushMetrics()

	span.SetAttributes(
		attribute.Int("transactions", len(out.Ledger)),
		attribute.Int("artifacts", len(out.Artifacts)),
	)
	return out, nil
}

// Ingest loads the ledger from the configured source without enriching it.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (*service.Result, error) {
	result, _, err := p.ingest(ctx, in)
	return result, err
}

// Enrich categorizes and anomaly-labels txs, returning a new collection.
func (p *Pipeline) Enrich(ctx context.Context, txs []ledger.Transaction) ([]ledger.Transaction, error) {
	labelled, err := p.categorizer.Apply(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}
	detected, err := p.detector.Detect(ctx, labelled)
	if err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}
	return detected, nil
}

// ForecastOnly ingests, forecasts and stores the forecast chart and CSV.
func (p *Pipeline) ForecastOnly(ctx context.Context, in Input) (*forecast.Result, []*storage.FileInfo, error) {
	result, err := p.Ingest(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	fc, err := p.forecaster.Forecast(ctx, result.Transactions, p.opts.Horizon)
	if err != nil {
		p.metrics.ForecastFailed(forecastFailureKind(err))
		return nil, nil, err
	}
	infos, err := p.writeForecast(ctx, fc)
	p.flushMetrics()
	return fc, infos, err
}

func (p *Pipeline) ingest(ctx context.Context, in Input) (*service.Result, []parser.Unit, error) {
	switch {
	case in.TablePath != "":
		result, err := p.importer.LoadTable(ctx, in.TablePath)
		return result, nil, err
	case in.TextDir != "":
		result, err := p.importer.LoadText(ctx, in.TextDir)
		if result == nil {
			return nil, nil, err
		}
		return result, result.Pages, err
	default:
		return nil, nil, ErrNoSource
	}
}

func (p *Pipeline) writeScatter(ctx context.Context, txs []ledger.Transaction) (*storage.FileInfo, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	marks := make([]chart.Mark, len(txs))
	for i, tx := range txs {
		marks[i] = chart.Mark{
			Point:     chart.Point{Time: tx.Date, Value: tx.Amount},
			Group:     tx.Flow,
			Highlight: tx.IsAnomalous(),
		}
	}
	img, err := chart.AnomalyScatter("Transaction Amounts with Anomalies", marks, chart.Size{})
	if err != nil {
		return nil, fmt.Errorf("render scatter: %w", err)
	}
	return putBytes(ctx, p.store, ScatterChartName, "image/png", img)
}

func (p *Pipeline) writeForecast(ctx context.Context, fc *forecast.Result) ([]*storage.FileInfo, error) {
	history := make([]chart.Point, fc.History.Len())
	for i, pt := range fc.History.Points() {
		history[i] = chart.Point{Time: pt.Date, Value: pt.Value}
	}
	projected := make([]chart.Point, len(fc.Points))
	for i, pt := range fc.Points {
		projected[i] = chart.Point{Time: pt.Date, Value: pt.Value}
	}

	img, err := chart.ForecastPlot("Cash Flow Forecast", history, projected, chart.Size{})
	if err != nil {
		return nil, fmt.Errorf("render forecast: %w", err)
	}
	plot, err := putBytes(ctx, p.store, ForecastChartName, "image/png", img)
	if err != nil {
		return nil, err
	}
	table, err := WriteForecastCSV(ctx, p.store, fc.Points)
	if err != nil {
		return []*storage.FileInfo{plot}, err
	}
	return []*storage.FileInfo{plot, table}, nil
}

// stage runs fn inside a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := metrics.Tracer().Start(ctx, "pipeline."+name)
	defer span.End()
	start := time.Now()

	err := fn(ctx)
	p.metrics.ObserveStage(name, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	p.logger.Debug("stage complete", slog.String("stage", name), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Pipeline) currency(result *service.Result) string {
	switch {
	case p.opts.Currency != "":
		return p.opts.Currency
	case result != nil && result.Currency != "":
		return result.Currency
	default:
		return money.DefaultCurrency
	}
}

func (p *Pipeline) flushMetrics() {
	if p.opts.MetricsTextfile == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.opts.MetricsTextfile); err != nil {
		p.logger.Warn("failed to write metrics textfile", slog.Any("error", err))
	}
}

func (o *Outcome) addArtifact(info *storage.FileInfo) {
	if info == nil {
		return
	}
	o.Artifacts = append(o.Artifacts, info)
	if o.Report != nil {
		o.Report.AddArtifact(info.Location)
	}
}

func forecastFailureKind(err error) string {
	switch {
	case errors.Is(err, forecast.ErrNoData):
		return "no_data"
	case errors.Is(err, forecast.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, forecast.ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, forecast.ErrModelFit):
		return "model_fit"
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, forecast.ErrSpanTooLong):
		return "span_too_long"
	default:
		return "other"
	}
}

func forecastNote(fc *forecast.Result, currency string) string {
	if len(fc.Points) == 0 {
		return fmt.Sprintf("Model %s fitted on %d days; no horizon requested.", fc.Model, fc.History.Len())
	}
	values := make([]float64, len(fc.Points))
	for i, pt := range fc.Points {
		values[i] = pt.Value
	}
	total := money.Sum(values...).InexactFloat64()
	last := fc.Points[len(fc.Points)-1]
	return fmt.Sprintf("Model %s fitted on %d days. Projected net over %d days: %s (through %s).",
		fc.Model, fc.History.Len(), len(fc.Points),
		money.FormatSigned(total, currency), last.Date.Format(time.DateOnly))
}
