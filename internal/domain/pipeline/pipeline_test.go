package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-insights/internal/domain/anomaly"
	"github.com/FACorreiaa/statement-insights/internal/domain/categorization"
	"github.com/FACorreiaa/statement-insights/internal/domain/forecast"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/service"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger/ledgertest"
	"github.com/FACorreiaa/statement-insights/internal/domain/narrative"
	"github.com/FACorreiaa/statement-insights/pkg/metrics"
	"github.com/FACorreiaa/statement-insights/pkg/storage"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *storage.LocalStorage) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := metrics.NewRecorder()

	strategies, err := parser.DefaultStrategies(parser.Options{ReferenceYear: 2024}, logger)
	require.NoError(t, err)
	importer := service.NewImportService(parser.NewTextParser(logger, strategies...), rec, logger, service.Options{})

	detector, err := anomaly.NewDefaultDetector(anomaly.DefaultContamination, logger)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p := New(importer,
		categorization.NewDefaultCategorizer(logger),
		detector,
		forecast.NewDefaultForecaster(logger),
		store, rec, logger, opts)
	return p, store
}

func writeStatement(t *testing.T, days int) string {
	t.Helper()
	dir := t.TempDir()
	txs := ledgertest.New(17).Transactions(start, days)
	for page, from := 1, 0; from < len(txs); page, from = page+1, from+25 {
		to := min(from+25, len(txs))
		name := filepath.Join(dir, fmt.Sprintf("page_%d.txt", page))
		require.NoError(t, os.WriteFile(name, []byte(ledgertest.FullDateStatement(txs[from:to])), 0o644))
	}
	return dir
}

func artifactNames(t *testing.T, store storage.Storage) []string {
	t.Helper()
	files, err := store.List(context.Background())
	require.NoError(t, err)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func TestRun_TextDirectory(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "insights.prom")
	p, store := newTestPipeline(t, Options{MetricsTextfile: textfile})

	out, err := p.Run(context.Background(), Input{TextDir: writeStatement(t, 100)})
	require.NoError(t, err)

	require.Len(t, out.Ledger, 100)
	for _, tx := range out.Ledger {
		assert.NotEmpty(t, tx.Category)
		assert.NotEmpty(t, tx.Flow)
		assert.NotEqual(t, ledger.Unevaluated, tx.Anomaly)
	}

	require.NoError(t, out.ForecastErr)
	require.NotNil(t, out.Forecast)
	assert.Len(t, out.Forecast.Points, forecast.DefaultHorizon)

	assert.ElementsMatch(t,
		[]string{ScatterChartName, ForecastChartName, ForecastCSVName, LedgerCSVName},
		artifactNames(t, store))
	assert.Len(t, out.Report.Artifacts, 4)
	assert.Equal(t, "USD", out.Report.Currency)

	var buf bytes.Buffer
	require.NoError(t, out.Report.WriteText(&buf))
	assert.Contains(t, buf.String(), "Projected net over 30 days")

	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "statement_insights_transactions_total")
	assert.Contains(t, string(prom), `stage="enrich"`)
}

func TestRun_ForecastFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_1.txt"),
		[]byte("01/05/2024 Office Rent 1,200.00\n01/06/2024 Coffee Shop Purchase 4.50\n"), 0o644))

	p, store := newTestPipeline(t, Options{Currency: "EUR"})
	out, err := p.Run(context.Background(), Input{TextDir: dir})
	require.NoError(t, err)

	assert.ErrorIs(t, out.ForecastErr, forecast.ErrInsufficientData)
	assert.Nil(t, out.Forecast)
	assert.ElementsMatch(t, []string{ScatterChartName, LedgerCSVName}, artifactNames(t, store))
	assert.Equal(t, "EUR", out.Report.Currency)

	var buf bytes.Buffer
	require.NoError(t, out.Report.WriteText(&buf))
	assert.Contains(t, buf.String(), "Forecast unavailable")
}

func TestRun_InputErrors(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	ctx := context.Background()

	_, err := p.Run(ctx, Input{})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = p.Run(ctx, Input{TextDir: t.TempDir()})
	assert.ErrorIs(t, err, service.ErrNoInput)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_1.txt"), []byte("no rows"), 0o644))
	_, err = p.Run(ctx, Input{TextDir: dir})
	assert.ErrorIs(t, err, service.ErrNoTransactions)
}

func TestRun_TableInput(t *testing.T) {
	csv := "Date,Description,Debit,Credit,Balance\n" +
		"01/02/2024,Office Lease,1000.00,,9000.00\n" +
		"02/02/2024,Client Deposit,,2500.00,11500.00\n" +
		"03/02/2024,Electric Utility,120.00,,11380.00\n" +
		"04/02/2024,Payroll,3000.00,,8380.00\n"
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	p, _ := newTestPipeline(t, Options{})
	out, err := p.Run(context.Background(), Input{TablePath: path})
	require.NoError(t, err)

	require.Len(t, out.Ledger, 4)
	assert.Equal(t, "rent", out.Ledger[0].Category)
	assert.Equal(t, "Deposit", out.Ledger[1].Flow)
	assert.Equal(t, "utilities", out.Ledger[2].Category)
	assert.Equal(t, "payroll", out.Ledger[3].Category)
	require.NoError(t, out.ForecastErr)
}

type echoAnalyzer struct{}

func (echoAnalyzer) Analyze(_ context.Context, text string) (string, error) {
	return fmt.Sprintf("lines: %d", strings.Count(text, "\n")), nil
}

func TestRun_WithNarrative(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, _ := newTestPipeline(t, Options{})
	p.WithNarrative(narrative.NewService(echoAnalyzer{}, 0, logger))

	out, err := p.Run(context.Background(), Input{TextDir: writeStatement(t, 50)})
	require.NoError(t, err)
	require.Len(t, out.Narratives, 2)
	assert.Equal(t, "page_1.txt", out.Narratives[0].Unit)

	var buf bytes.Buffer
	require.NoError(t, out.Report.WriteText(&buf))
	assert.Contains(t, buf.String(), "--- page_2.txt ---")
}

func TestForecastOnly(t *testing.T) {
	p, store := newTestPipeline(t, Options{Horizon: 7})

	fc, infos, err := p.ForecastOnly(context.Background(), Input{TextDir: writeStatement(t, 30)})
	require.NoError(t, err)
	assert.Len(t, fc.Points, 7)
	assert.Len(t, infos, 2)
	assert.ElementsMatch(t, []string{ForecastChartName, ForecastCSVName}, artifactNames(t, store))
}

func TestWriteLedgerCSV(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	balance := 804.80
	tx := ledger.NewTableTransaction(start, "Account Fee", 4, 0)
	tx.Balance = &balance
	tx.Category, tx.Flow, tx.Anomaly = "misc", "Other", ledger.Normal

	_, err = WriteLedgerCSV(context.Background(), store, []ledger.Transaction{tx})
	require.NoError(t, err)

	r, err := store.Get(context.Background(), LedgerCSVName)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,description,debit,credit,amount,balance,source,category,flow,anomaly,anomaly_score,unit,line", lines[0])

	var rows []*LedgerRow
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, -4.0, rows[0].Amount)
	assert.Equal(t, "804.80", rows[0].Balance)
	assert.Equal(t, "table", rows[0].Source)
	assert.Equal(t, "normal", rows[0].Anomaly)
}

func TestForecastFailureKind(t *testing.T) {
	assert.Equal(t, "no_data", forecastFailureKind(forecast.ErrNoData))
	assert.Equal(t, "model_fit", forecastFailureKind(forecast.ErrModelFit))
	assert.Equal(t, "span_too_long", forecastFailureKind(fmt.Errorf("wrap: %w", forecast.ErrSpanTooLong)))
	assert.Equal(t, "other", forecastFailureKind(assert.AnError))
}
