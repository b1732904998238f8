package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrInvalidContamination = errors.New("contamination must be in (0, 0.5]")
	ErrInvalidHorizon       = errors.New("forecast horizon must be positive")
	ErrInvalidStorage       = errors.New("invalid storage configuration")
)

// Config holds all application configuration
type Config struct {
	Pipeline      PipelineConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Gemini        GeminiConfig
	Watch         WatchConfig
}

type PipelineConfig struct {
	InputDir      string
	OutputDir     string
	Contamination float64
	Horizon       int
	// ReferenceYear fills in year-less statement dates. Zero means "current year".
	ReferenceYear int
	Workers       int
	RulesFile     string
	// Currency overrides the symbol-based guess when set.
	Currency      string
}

type StorageConfig struct {
	Type      string
	GCSBucket string
	GCSPrefix string
}

type ObservabilityConfig struct {
	LogLevel        string
	LogFormat       string
	MetricsTextfile string
}

// GeminiConfig is optional; the narrative step is skipped without an API key.
type GeminiConfig struct {
	APIKey        string
	Model         string
	RatePerSecond float64
}

func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type WatchConfig struct {
	Schedule string
}

// Load reads configuration from environment variables, after merging a .env
// file from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Pipeline: PipelineConfig{
			InputDir:      getEnv("INPUT_DIR", "extracted_texts"),
			OutputDir:     getEnv("OUTPUT_DIR", "extracted_texts"),
			Contamination: getEnvAsFloat("CONTAMINATION", 0.05),
			Horizon:       getEnvAsInt("FORECAST_HORIZON", 30),
			ReferenceYear: getEnvAsInt("REFERENCE_YEAR", 0),
			Workers:       getEnvAsInt("PARSE_WORKERS", 0),
			RulesFile:     getEnv("RULES_FILE", ""),
			Currency:      strings.ToUpper(getEnv("CURRENCY", "")),
		},
		Storage: StorageConfig{
			Type:      strings.ToLower(getEnv("STORAGE_TYPE", "local")),
			GCSBucket: getEnv("STORAGE_GCS_BUCKET", ""),
			GCSPrefix: getEnv("STORAGE_GCS_PREFIX", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			LogFormat:       getEnv("LOG_FORMAT", "text"),
			MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		},
		Gemini: GeminiConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			Model:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			RatePerSecond: getEnvAsFloat("NARRATIVE_RPS", 1),
		},
		Watch: WatchConfig{
			Schedule: getEnv("WATCH_SCHEDULE", "@every 15m"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Pipeline.Contamination <= 0 || c.Pipeline.Contamination > 0.5 {
		return fmt.Errorf("%w: got %v", ErrInvalidContamination, c.Pipeline.Contamination)
	}
	if c.Pipeline.Horizon <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidHorizon, c.Pipeline.Horizon)
	}
	switch c.Storage.Type {
	case "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("%w: STORAGE_GCS_BUCKET is required for gcs", ErrInvalidStorage)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidStorage, c.Storage.Type)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
