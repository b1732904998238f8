package categorization

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// chunkSize is the number of transactions one worker labels per task.
const chunkSize = 512

// Categorizer applies the domain and flow taxonomies to a collection.
type Categorizer struct {
	domain  *Engine
	flow    *Engine
	workers int
	logger  *slog.Logger
}

// NewCategorizer builds a categorizer with one engine per taxonomy. workers
// bounds the parallelism of Apply; zero or less uses GOMAXPROCS.
func NewCategorizer(domain, flow Taxonomy, workers int, logger *slog.Logger) *Categorizer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	c := &Categorizer{
		domain:  NewEngine(domain),
		flow:    NewEngine(flow),
		workers: workers,
		logger:  logger,
	}
	logger.Debug("taxonomies loaded",
		slog.String("domain_taxonomy", domain.Name),
		slog.Int("domain_patterns", c.domain.PatternCount()),
		slog.String("flow_taxonomy", flow.Name),
		slog.Int("flow_patterns", c.flow.PatternCount()))
	return c
}

// NewDefaultCategorizer uses the built-in taxonomies.
func NewDefaultCategorizer(logger *slog.Logger) *Categorizer {
	return NewCategorizer(DomainTaxonomy(), FlowTaxonomy(), 0, logger)
}

// Domain returns the domain engine.
func (c *Categorizer) Domain() *Engine { return c.domain }

// Flow returns the flow engine.
func (c *Categorizer) Flow() *Engine { return c.flow }

// Apply returns a copy of txs with Category and Flow set. Only those two
// fields change; input order is kept.
func (c *Categorizer) Apply(ctx context.Context, txs []ledger.Transaction) ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, len(txs))
	copy(out, txs)
	if len(out) == 0 {
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for start := 0; start < len(out); start += chunkSize {
		end := min(start+chunkSize, len(out))
		chunk := out[start:end]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			descriptions := make([]string, len(chunk))
			for i := range chunk {
				descriptions[i] = chunk[i].Description
			}
			categories := c.domain.ClassifyBatch(descriptions)
			flows := c.flow.ClassifyBatch(descriptions)
			for i := range chunk {
				chunk[i].Category, chunk[i].Flow = categories[i], flows[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("categorized transactions",
		slog.Int("count", len(out)),
		slog.String("domain_taxonomy", c.domain.Taxonomy().Name),
		slog.String("flow_taxonomy", c.flow.Taxonomy().Name))
	return out, nil
}
