package config

import (
	"os"
	"strconv"
	"strings"

	"goab/domain/metric"
	"goab/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration. It is built once
// at startup and passed to the components that need it.
type Config struct {
	Columns  ColumnConfig
	Metrics  MetricConfig
	Pipeline PipelineConfig
	Data     DataConfig
	Database DatabaseConfig
	Server   ServerConfig
	LogLevel string
}

// ColumnConfig names the raw data columns the pipeline relies on
type ColumnConfig struct {
	Variant    string
	UserID     string
	Experiment string // empty: the whole table is one experiment
}

// MetricConfig holds metric definition defaults and where presets live
type MetricConfig struct {
	DefaultEstimator string
	DefaultType      string
	DefaultLevel     string
	PresetDir        string
	Preset           string
}

// PipelineConfig tunes evaluation
type PipelineConfig struct {
	Strict   bool
	Workers  int
	EqualVar bool
}

// DataConfig holds input and output file paths
type DataConfig struct {
	File       string
	ReportFile string
}

// DatabaseConfig holds database connection settings. Persistence is off when URL is empty.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads an optional .env file and then the environment, and validates the result.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// FromEnv reads the environment without validating.
func FromEnv() *Config {
	return &Config{
		Columns: ColumnConfig{
			Variant:    getEnvOrDefault("VARIANT_COL", "experiment_variant"),
			UserID:     getEnvOrDefault("USER_ID_COL", "client_id"),
			Experiment: getEnvOrDefault("EXPERIMENT_COL", ""),
		},
		Metrics: MetricConfig{
			DefaultEstimator: getEnvOrDefault("DEFAULT_ESTIMATOR", metric.EstimatorTTestLinearization),
			DefaultType:      getEnvOrDefault("DEFAULT_METRIC_TYPE", string(metric.TypeRatio)),
			DefaultLevel:     getEnvOrDefault("DEFAULT_UNIT_LEVEL", "client_id"),
			PresetDir:        getEnvOrDefault("PATH_METRIC_CONFIGS", "params/metrics/"),
			Preset:           getEnvOrDefault("METRIC_PRESET", "default"),
		},
		Pipeline: PipelineConfig{
			Strict:   getEnvBoolOrDefault("STRICT_MODE", false),
			Workers:  getEnvIntOrDefault("WORKERS", 4),
			EqualVar: getEnvBoolOrDefault("T_TEST_EQUAL_VAR", true),
		},
		Data: DataConfig{
			File:       getEnvOrDefault("DATA_FILE", "data/csv/df_sample.csv"),
			ReportFile: getEnvOrDefault("REPORT_FILE", "experiment_report.csv"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be a positive integer")
	}
	if strings.TrimSpace(c.Columns.Variant) == "" {
		return errors.ConfigInvalid("VARIANT_COL is required")
	}
	if strings.TrimSpace(c.Metrics.DefaultLevel) == "" {
		return errors.ConfigInvalid("DEFAULT_UNIT_LEVEL is required")
	}
	if _, err := metric.ParseEstimator(c.Metrics.DefaultEstimator); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := metric.ParseType(c.Metrics.DefaultType); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid("GIN_MODE must be debug, release or test")
	}
	return nil
}

// MetricDefaults converts the metric section into parser defaults.
func (c *Config) MetricDefaults() metric.Defaults {
	return metric.Defaults{
		Type:      c.Metrics.DefaultType,
		Level:     c.Metrics.DefaultLevel,
		Estimator: c.Metrics.DefaultEstimator,
	}
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.Database.URL != ""
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
