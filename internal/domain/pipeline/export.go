package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-insights/internal/domain/forecast"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/pkg/storage"
)

// Artifact names written by a run.
const (
	ScatterChartName  = "transaction_analysis.png"
	ForecastChartName = "forecast_cash_flow.png"
	LedgerCSVName     = "ledger.csv"
	ForecastCSVName   = "forecast.csv"
)

// LedgerRow is the CSV layout of ledger.csv.
type LedgerRow struct {
	Date         string  `csv:"date"`
	Description  string  `csv:"description"`
	Debit        float64 `csv:"debit"`
	Credit       float64 `csv:"credit"`
	Amount       float64 `csv:"amount"`
	Balance      string  `csv:"balance"`
	Source       string  `csv:"source"`
	Category     string  `csv:"category"`
	Flow         string  `csv:"flow"`
	Anomaly      string  `csv:"anomaly"`
	AnomalyScore float64 `csv:"anomaly_score"`
	Unit         string  `csv:"unit"`
	Line         int     `csv:"line"`
}

// ForecastRow is the CSV layout of forecast.csv.
type ForecastRow struct {
	Date     string  `csv:"date"`
	Forecast float64 `csv:"forecast"`
}

// LedgerRows converts transactions to export rows.
func LedgerRows(txs []ledger.Transaction) []*LedgerRow {
	rows := make([]*LedgerRow, len(txs))
	for i, tx := range txs {
		row := &LedgerRow{
			Date:         tx.Date.Format(time.DateOnly),
			Description:  tx.Description,
			Debit:        tx.Debit,
			Credit:       tx.Credit,
			Amount:       tx.Amount,
			Source:       tx.Source.String(),
			Category:     tx.Category,
			Flow:         tx.Flow,
			Anomaly:      tx.Anomaly.String(),
			AnomalyScore: tx.AnomalyScore,
			Unit:         tx.Unit,
			Line:         tx.Line,
		}
		if tx.Balance != nil {
			row.Balance = strconv.FormatFloat(*tx.Balance, 'f', 2, 64)
		}
		rows[i] = row
	}
	return rows
}

// ForecastRows converts forecast points to export rows.
func ForecastRows(points []forecast.Point) []*ForecastRow {
	rows := make([]*ForecastRow, len(points))
	for i, p := range points {
		rows[i] = &ForecastRow{Date: p.Date.Format(time.DateOnly), Forecast: p.Value}
	}
	return rows
}

// WriteLedgerCSV stores the ledger as ledger.csv.
func WriteLedgerCSV(ctx context.Context, store storage.Storage, txs []ledger.Transaction) (*storage.FileInfo, error) {
	return putCSV(ctx, store, LedgerCSVName, LedgerRows(txs))
}

// WriteForecastCSV stores the forecast as forecast.csv.
func WriteForecastCSV(ctx context.Context, store storage.Storage, points []forecast.Point) (*storage.FileInfo, error) {
	return putCSV(ctx, store, ForecastCSVName, ForecastRows(points))
}

func putCSV(ctx context.Context, store storage.Storage, name string, rows any) (*storage.FileInfo, error) {
	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return putBytes(ctx, store, name, "text/csv", data)
}

func putBytes(ctx context.Context, store storage.Storage, name, contentType string, data []byte) (*storage.FileInfo, error) {
	info, err := store.Put(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	return info, nil
}
