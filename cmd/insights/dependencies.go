package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-insights/internal/domain/anomaly"
	"github.com/FACorreiaa/statement-insights/internal/domain/categorization"
	"github.com/FACorreiaa/statement-insights/internal/domain/forecast"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/statement-insights/internal/domain/import/service"
	"github.com/FACorreiaa/statement-insights/internal/domain/narrative"
	"github.com/FACorreiaa/statement-insights/internal/domain/pipeline"
	"github.com/FACorreiaa/statement-insights/pkg/config"
	"github.com/FACorreiaa/statement-insights/pkg/metrics"
	"github.com/FACorreiaa/statement-insights/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Metrics   *metrics.Recorder
	Store     storage.Storage
	Namespace string

	// Services
	TextParser    *parser.TextParser
	ImportService *importservice.ImportService
	Categorizer   *categorization.Categorizer
	Detector      *anomaly.Detector
	Forecaster    *forecast.Forecaster
	Narrative     *narrative.Service
	Pipeline      *pipeline.Pipeline

	closers []io.Closer
}

// InitDependencies initializes all application dependencies. When isolate
// is set the run writes under a fresh uuid namespace.
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, isolate bool) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRecorder(),
	}
	if isolate {
		deps.Namespace = uuid.NewString()
	}

	if err := deps.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initNarrative(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to init narrative: %w", err)
	}

	deps.initPipeline()

	logger.Debug("all dependencies initialized",
		slog.String("storage", cfg.Storage.Type),
		slog.String("namespace", deps.Namespace),
		slog.Bool("narrative", deps.Narrative != nil))
	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context) error {
	store, err := storage.New(ctx, &storage.Config{
		Type:      storage.StorageType(d.Config.Storage.Type),
		LocalPath: d.Config.Pipeline.OutputDir,
		GCSBucket: d.Config.Storage.GCSBucket,
		GCSPrefix: d.Config.Storage.GCSPrefix,
		Namespace: d.Namespace,
	})
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		d.closers = append(d.closers, c)
	}
	d.Store = store
	return nil
}

func (d *Dependencies) initServices() error {
	p := d.Config.Pipeline

	strategies, err := parser.DefaultStrategies(parser.Options{ReferenceYear: p.ReferenceYear}, d.Logger)
	if err != nil {
		return err
	}
	d.TextParser = parser.NewTextParser(d.Logger, strategies...)
	d.ImportService = importservice.NewImportService(d.TextParser, d.Metrics, d.Logger, importservice.Options{
		Workers: p.Workers,
	})

	domain, flow, err := categorization.LoadTaxonomies(p.RulesFile)
	if err != nil {
		return err
	}
	d.Categorizer = categorization.NewCategorizer(domain, flow, p.Workers, d.Logger)

	d.Detector, err = anomaly.NewDefaultDetector(p.Contamination, d.Logger)
	if err != nil {
		return err
	}
	d.Forecaster = forecast.NewDefaultForecaster(d.Logger)
	return nil
}

func (d *Dependencies) initNarrative(ctx context.Context) error {
	g := d.Config.Gemini
	if !g.Enabled() {
		return nil
	}
	analyzer, err := narrative.NewGeminiAnalyzer(ctx, g.APIKey, g.Model)
	if err != nil {
		return err
	}
	d.Narrative = narrative.NewService(analyzer, g.RatePerSecond, d.Logger)
	return nil
}

func (d *Dependencies) initPipeline() {
	d.Pipeline = pipeline.New(
		d.ImportService,
		d.Categorizer,
		d.Detector,
		d.Forecaster,
		d.Store,
		d.Metrics,
		d.Logger,
		pipeline.Options{
			Horizon:         d.Config.Pipeline.Horizon,
			Currency:        d.Config.Pipeline.Currency,
			MetricsTextfile: d.Config.Observability.MetricsTextfile,
		},
	)
	if d.Narrative != nil {
		d.Pipeline.WithNarrative(d.Narrative)
	}
}

// Close releases storage clients.
func (d *Dependencies) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.Logger.Warn("failed to close dependency", slog.Any("error", err))
		}
	}
}

// newLogger builds the slog handler selected by LOG_FORMAT and LOG_LEVEL.
func newLogger(cfg config.ObservabilityConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runTimeout bounds one scheduled pipeline run.
const runTimeout = 10 * time.Minute
