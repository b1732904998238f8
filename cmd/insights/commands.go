package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-insights/internal/domain/categorization"
	"github.com/FACorreiaa/statement-insights/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/statement-insights/internal/domain/import/service"
	"github.com/FACorreiaa/statement-insights/internal/domain/ledger"
	"github.com/FACorreiaa/statement-insights/internal/domain/pipeline"
	"github.com/FACorreiaa/statement-insights/pkg/cron"
)

func sourceInput(deps *Dependencies, table string) pipeline.Input {
	if table != "" {
		return pipeline.Input{TablePath: table}
	}
	return pipeline.Input{TextDir: deps.Config.Pipeline.InputDir}
}

func newAnalyzeCommand(flags *globalFlags) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full pipeline and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer deps.Close()

			out, err := deps.Pipeline.Run(cmd.Context(), sourceInput(deps, table))
			if err != nil {
				return err
			}
			if out.ForecastErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: forecast failed: %v\n", out.ForecastErr)
			}
			return out.Report.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "read a .csv or .xlsx statement instead of text pages")
	return cmd
}

func newForecastCommand(flags *globalFlags) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast daily net cash flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer deps.Close()

			fc, infos, err := deps.Pipeline.ForecastOnly(cmd.Context(), sourceInput(deps, table))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "date\tforecast")
			for _, p := range fc.Points {
				fmt.Fprintf(tw, "%s\t%.2f\n", p.Date.Format(time.DateOnly), p.Value)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", info.Location)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "read a .csv or .xlsx statement instead of text pages")
	return cmd
}

func newListCommand(flags *globalFlags) *cobra.Command {
	var (
		table         string
		categories    []string
		from, to      string
		anomaliesOnly bool
		explain       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enriched transactions matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := ledger.Filter{Categories: categories, AnomaliesOnly: anomaliesOnly}
			var err error
			if filter.From, err = parseDay(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filter.To, err = parseDay(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			deps, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := checkCategories(deps.Categorizer, categories); err != nil {
				return err
			}

			result, err := deps.Pipeline.Ingest(cmd.Context(), sourceInput(deps, table))
			if err != nil {
				return err
			}
			enriched, err := deps.Pipeline.Enrich(cmd.Context(), result.Transactions)
			if err != nil {
				return err
			}
			selected := filter.Apply(enriched)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			header := "date\tdescription\tamount\tcategory\tflow\tanomaly"
			if explain {
				header += "\tmatched rules"
			}
			fmt.Fprintln(tw, header)
			for _, tx := range selected {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s", tx.Date.Format(time.DateOnly),
					tx.Description, tx.Amount, tx.Category, tx.Flow, tx.Anomaly)
				if explain {
					fmt.Fprintf(tw, "\t%s", strings.Join(deps.Categorizer.Domain().MatchAll(tx.Description), ","))
				}
				fmt.Fprintln(tw)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n%d of %d transactions, %d anomalous\n",
				len(selected), len(enriched), ledger.CountAnomalies(selected))
			counts := ledger.CountBy(selected, func(tx ledger.Transaction) string { return tx.Category })
			for _, category := range ledger.SortedKeys(counts) {
				fmt.Fprintf(w, "  %s: %d\n", category, counts[category])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "read a .csv or .xlsx statement instead of text pages")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "keep domain or flow categories (repeatable)")
	cmd.Flags().StringVar(&from, "from", "", "first day to keep, YYYY-MM-DD or DD/MM/YYYY")
	cmd.Flags().StringVar(&to, "to", "", "last day to keep, YYYY-MM-DD or DD/MM/YYYY")
	cmd.Flags().BoolVar(&anomaliesOnly, "anomalies", false, "keep anomalous transactions only")
	cmd.Flags().BoolVar(&explain, "explain", false, "show every domain rule each description matches")
	return cmd
}

var errUnknownCategory = errors.New("unknown category")

// parseDay reads a filter bound in any statement date layout. Empty means
// unbounded.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	day, ok := parser.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return day, nil
}

// checkCategories rejects filter categories neither taxonomy can produce.
func checkCategories(c *categorization.Categorizer, categories []string) error {
	known := append(c.Domain().Taxonomy().Labels(), c.Flow().Taxonomy().Labels()...)
	for _, category := range categories {
		if !slices.Contains(known, category) {
			return fmt.Errorf("%w %q, expected one of %s", errUnknownCategory, category, strings.Join(known, ", "))
		}
	}
	return nil
}

func newNormalizeCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Normalize a .csv or .xlsx statement into ledger.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.Pipeline.Ingest(cmd.Context(), pipeline.Input{TablePath: args[0]})
			if err != nil {
				return err
			}
			info, err := pipeline.WriteLedgerCSV(cmd.Context(), deps.Store, result.Transactions)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			first, last, _ := ledger.DateRange(result.Transactions)
			fmt.Fprintf(w, "%d transactions from %s to %s\n", len(result.Transactions),
				first.Format(time.DateOnly), last.Format(time.DateOnly))
			for _, d := range result.Dropped {
				fmt.Fprintf(w, "dropped: %s\n", d.Error())
			}
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			fmt.Fprintf(w, "wrote %s\n", info.Location)
			return nil
		},
	}
	return cmd
}

func newExtractCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <pdf-dir>",
		Short: "Extract PDF pages into page_N.txt files in the input directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Observability, cmd.ErrOrStderr())

			pages, err := parser.NewPDFExtractor(logger).ExtractAll(cmd.Context(), args[0], cfg.Pipeline.InputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d pages into %s\n", pages, cfg.Pipeline.InputDir)
			return nil
		},
	}
	return cmd
}

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var (
		table    string
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the pipeline on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer deps.Close()

			if !cmd.Flags().Changed("schedule") {
				schedule = deps.Config.Watch.Schedule
			}

			input := sourceInput(deps, table)
			scheduler := cron.NewScheduler(func(ctx context.Context) error {
				out, err := deps.Pipeline.Run(ctx, input)
				if err != nil {
					return err
				}
				deps.Logger.Info("scheduled run complete",
					slog.Int("transactions", len(out.Ledger)),
					slog.Int("anomalies", out.Report.Anomalies),
					slog.Int("artifacts", len(out.Artifacts)))
				return nil
			}, runTimeout, deps.Logger)

			if err := scheduler.RunNow(cmd.Context()); err != nil && !isEmptyInput(err) {
				return err
			}
			if err := scheduler.Start(schedule); err != nil {
				return err
			}

			<-cmd.Context().Done()
			<-scheduler.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "read a .csv or .xlsx statement instead of text pages")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec or descriptor (WATCH_SCHEDULE)")
	return cmd
}

// isEmptyInput reports errors a watcher waits out instead of exiting on.
func isEmptyInput(err error) bool {
	return errors.Is(err, importservice.ErrNoInput) || errors.Is(err, importservice.ErrNoTransactions)
}
