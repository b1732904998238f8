// Package narrative asks a language model for a plain-language reading of
// each statement page. It is optional: the pipeline runs without it when no
// API key is configured.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
)

var ErrEmptyResponse = errors.New("empty response from model")

// Analyzer produces a narrative for one text unit.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Result is the narrative for one unit. Err is set instead of Text when the
// call failed; other units are unaffected.
type Result struct {
	Unit string
	Text string
	Err  error
}

// Service fans units out to an Analyzer one at a time under a rate limit.
type Service struct {
	analyzer Analyzer
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewService throttles calls to rps requests per second. rps <= 0 disables
// throttling.
func NewService(analyzer Analyzer, rps float64, logger *slog.Logger) *Service {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Service{
		analyzer: analyzer,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// AnalyzeUnits returns one result per unit in input order. Only context
// cancellation stops the loop; analyzer errors are recorded per unit.
func (s *Service) AnalyzeUnits(ctx context.Context, units []parser.Unit) ([]Result, error) {
	results := make([]Result, 0, len(units))
	for _, u := range units {
		if err := s.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		text, err := s.analyzer.Analyze(ctx, u.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			s.logger.Warn("narrative analysis failed",
				slog.String("unit", u.Name),
				slog.Any("error", err))
			results = append(results, Result{Unit: u.Name, Err: err})
			continue
		}
		results = append(results, Result{Unit: u.Name, Text: text})
	}
	return results, nil
}

// Render joins results into one text block, failed units inline.
func Render(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "--- %s ---\n", r.Unit)
		if r.Err != nil {
			fmt.Fprintf(&b, "analysis failed: %v\n", r.Err)
			continue
		}
		b.WriteString(strings.TrimSpace(r.Text))
		b.WriteString("\n")
	}
	return b.String()
}
