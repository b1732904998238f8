// Package anomaly flags unusual transaction amounts with an unsupervised
// outlier model.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// DefaultContamination is the expected share of anomalies.
const DefaultContamination = 0.05

var ErrInvalidContamination = errors.New("contamination must be in (0, 0.5]")

// Verdict is the model output for one value. Higher scores are more unusual.
type Verdict struct {
	Score     float64
	Anomalous bool
}

// OutlierModel fits on values and labels each of them.
type OutlierModel interface {
	Name() string
	FitPredict(ctx context.Context, values []float64) ([]Verdict, error)
}

// ValidateContamination checks the contamination range.
func ValidateContamination(c float64) error {
	if c <= 0 || c > 0.5 {
		return fmt.Errorf("%w: got %v", ErrInvalidContamination, c)
	}
	return nil
}

// Detector labels transactions by their signed amount.
type Detector struct {
	model  OutlierModel
	logger *slog.Logger
}

// NewDetector wraps a model.
func NewDetector(model OutlierModel, logger *slog.Logger) *Detector {
	return &Detector{model: model, logger: logger}
}

// NewDefaultDetector builds an isolation forest detector with the given
// contamination.
func NewDefaultDetector(contamination float64, logger *slog.Logger) (*Detector, error) {
	forest, err := NewIsolationForest(contamination)
	if err != nil {
		return nil, err
	}
	return NewDetector(forest, logger), nil
}

// Detect returns a copy of txs with Anomaly and AnomalyScore set. An empty
// collection yields an empty result.
func (d *Detector) Detect(ctx context.Context, txs []ledger.Transaction) ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, len(txs))
	copy(out, txs)
	if len(out) == 0 {
		return out, nil
	}

	verdicts, err := d.model.FitPredict(ctx, ledger.Amounts(out))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.model.Name(), err)
	}
	if len(verdicts) != len(out) {
		return nil, fmt.Errorf("%s returned %d verdicts for %d values", d.model.Name(), len(verdicts), len(out))
	}

	for i, v := range verdicts {
		out[i].AnomalyScore = v.Score
		if v.Anomalous {
			out[i].Anomaly = ledger.Anomalous
		} else {
			out[i].Anomaly = ledger.Normal
		}
	}

	d.logger.Info("anomaly detection complete",
		slog.String("model", d.model.Name()),
		slog.Int("transactions", len(out)),
		slog.Int("anomalies", ledger.CountAnomalies(out)))
	return out, nil
}
