package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-insights/pkg/config"
)

// globalFlags override environment configuration for one invocation.
type globalFlags struct {
	inputDir      string
	outputDir     string
	contamination float64
	horizon       int
	referenceYear int
	workers       int
	rulesFile     string
	currency      string
	logLevel      string
	namespace     bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "insights",
		Short: "Analyze business bank statements",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.inputDir, "input-dir", "", "directory of extracted .txt pages (INPUT_DIR)")
	pf.StringVar(&flags.outputDir, "output-dir", "", "artifact directory for local storage (OUTPUT_DIR)")
	pf.Float64Var(&flags.contamination, "contamination", 0, "expected anomaly share in (0, 0.5] (CONTAMINATION)")
	pf.IntVar(&flags.horizon, "horizon", 0, "forecast horizon in days (FORECAST_HORIZON)")
	pf.IntVar(&flags.referenceYear, "reference-year", 0, "year for statements without one (REFERENCE_YEAR)")
	pf.IntVar(&flags.workers, "workers", 0, "parallel parse workers (PARSE_WORKERS)")
	pf.StringVar(&flags.rulesFile, "rules", "", "YAML taxonomy file (RULES_FILE)")
	pf.StringVar(&flags.currency, "currency", "", "report currency code (CURRENCY)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.BoolVar(&flags.namespace, "namespace", false, "write artifacts under a fresh run id")

	root.AddCommand(
		newAnalyzeCommand(flags),
		newForecastCommand(flags),
		newListCommand(flags),
		newNormalizeCommand(flags),
		newExtractCommand(flags),
		newWatchCommand(flags),
	)
	return root
}

// loadConfig reads the environment and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("input-dir") {
		cfg.Pipeline.InputDir = flags.inputDir
	}
	if changed("output-dir") {
		cfg.Pipeline.OutputDir = flags.outputDir
	}
	if changed("contamination") {
		cfg.Pipeline.Contamination = flags.contamination
	}
	if changed("horizon") {
		cfg.Pipeline.Horizon = flags.horizon
	}
	if changed("reference-year") {
		cfg.Pipeline.ReferenceYear = flags.referenceYear
	}
	if changed("workers") {
		cfg.Pipeline.Workers = flags.workers
	}
	if changed("rules") {
		cfg.Pipeline.RulesFile = flags.rulesFile
	}
	if changed("currency") {
		cfg.Pipeline.Currency = flags.currency
	}
	if changed("log-level") {
		cfg.Observability.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and wires dependencies for a command.
func setup(cmd *cobra.Command, flags *globalFlags) (*Dependencies, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Observability, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return InitDependencies(cmd.Context(), cfg, logger, flags.namespace)
}
