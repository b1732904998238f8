package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
)

// Readable returns the units that were read successfully.
func Readable(units []Unit) []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.Err == nil {
			out = append(out, u)
		}
	}
	return out
}

// BatchResult aggregates per-unit results in input order.
type BatchResult struct {
	Transactions []ledger.Transaction
	Units        []UnitResult
}

// Missed returns the names of units no strategy matched.
func (b *BatchResult) Missed() []string {
	var names []string
	for _, u := range b.Units {
		if u.Missed() {
			names = append(names, u.Unit)
		}
	}
	return names
}

// Unreadable returns the names of units whose file could not be read.
func (b *BatchResult) Unreadable() []string {
	var names []string
	for _, u := range b.Units {
		if u.ReadErr != nil {
			names = append(names, u.Unit)
		}
	}
	return names
}

// Errors returns every dropped record across the batch.
func (b *BatchResult) Errors() []ParseError {
	var errs []ParseError
	for _, u := range b.Units {
		errs = append(errs, u.Errors...)
	}
	return errs
}

// ParseUnits parses units concurrently on at most workers goroutines
// (GOMAXPROCS when workers <= 0). Transactions are concatenated in unit
// order, so the output does not depend on scheduling.
func (p *TextParser) ParseUnits(ctx context.Context, units []Unit, workers int) (*BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]UnitResult, len(units))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, unit := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.Parse(unit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parse units: %w", err)
	}

	batch := &BatchResult{Units: results}
	for _, r := range results {
		batch.Transactions = append(batch.Transactions, r.Transactions...)
	}

	p.logger.Debug("parsed text units",
		slog.Int("units", len(units)),
		slog.Int("transactions", len(batch.Transactions)),
		slog.Int("missed", len(batch.Missed())),
		slog.Int("unreadable", len(batch.Unreadable())),
	)
	return batch, nil
}

// LoadUnits reads every .txt file in dir as one unit, in natural name order
// so that page_2.txt precedes page_10.txt. A file that cannot be read keeps
// its place as a unit with Err set; only an unreadable directory is an error.
func LoadUnits(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	units := make([]Unit, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			units = append(units, Unit{Name: name, Err: fmt.Errorf("read unit %s: %w", name, err)})
			continue
		}
		units = append(units, Unit{Name: name, Text: string(data)})
	}
	return units, nil
}

// naturalLess compares names chunk by chunk, treating digit runs as numbers.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, ra := nextChunk(a)
		cb, rb := nextChunk(b)
		if ca != cb {
			na, errA := strconv.Atoi(ca)
			nb, errB := strconv.Atoi(cb)
			if errA == nil && errB == nil && na != nb {
				return na < nb
			}
			return ca < cb
		}
		a, b = ra, rb
	}
	return len(a) < len(b)
}

func nextChunk(s string) (chunk, rest string) {
	digit := unicode.IsDigit(rune(s[0]))
	i := 1
	for i < len(s) && unicode.IsDigit(rune(s[i])) == digit {
		i++
	}
	return s[:i], s[i:]
}
