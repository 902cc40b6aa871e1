package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"govote/internal/errors"
	"govote/internal/folds"
	"govote/internal/learner"
	"govote/internal/logging"
	"govote/internal/voting"
)

// Config represents the complete application configuration
type Config struct {
	Ensemble EnsembleConfig
	Data     DataConfig
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
}

// EnsembleConfig describes the ensemble and how it is evaluated
type EnsembleConfig struct {
	Members        []string
	Voting         string
	FeatureScaling string
	PositiveLabel  string
	Objective      string
	Metrics        []string
	GridSearch     bool
	CVFolds        int
	Seed           int64
	Workers        int
}

// DataConfig holds input files and column names
type DataConfig struct {
	TrainFile   string
	TestFile    string
	IDColumn    string
	LabelColumn string
}

// ServerConfig holds prediction server settings
type ServerConfig struct {
	Port            string
	MaxConcurrent   int64
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the optional result ledger connection
type DatabaseConfig struct {
	URL string
}

// LogConfig selects the structured log level and format
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Ensemble: loadEnsembleConfig(),
		Data: DataConfig{
			TrainFile:   getEnvOrDefault("GOVOTE_TRAIN_FILE", ""),
			TestFile:    getEnvOrDefault("GOVOTE_TEST_FILE", ""),
			IDColumn:    getEnvOrDefault("GOVOTE_ID_COL", "id"),
			LabelColumn: getEnvOrDefault("GOVOTE_LABEL_COL", "y"),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			MaxConcurrent:   int64(getEnvIntOrDefault("GOVOTE_MAX_CONCURRENT", 8)),
			ShutdownTimeout: getEnvDurationOrDefault("GOVOTE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Members:        getEnvListOrDefault("GOVOTE_MEMBERS", []string{"LogisticRegression", "GaussianNB", "KNeighborsClassifier"}),
		Voting:         getEnvOrDefault("GOVOTE_VOTING", voting.Hard),
		FeatureScaling: getEnvOrDefault("GOVOTE_FEATURE_SCALING", learner.ScaleNone),
		PositiveLabel:  getEnvOrDefault("GOVOTE_POS_LABEL", ""),
		Objective:      getEnvOrDefault("GOVOTE_OBJECTIVE", ""),
		Metrics:        getEnvListOrDefault("GOVOTE_METRICS", nil),
		GridSearch:     getEnvBoolOrDefault("GOVOTE_GRID_SEARCH", false),
		CVFolds:        getEnvIntOrDefault("GOVOTE_CV_FOLDS", voting.DefaultFolds),
		Seed:           int64(getEnvIntOrDefault("GOVOTE_SEED", int(folds.DefaultSeed))),
		Workers:        getEnvIntOrDefault("GOVOTE_WORKERS", runtime.GOMAXPROCS(0)),
	}
}

func validateConfig(config *Config) error {
	e := config.Ensemble
	if len(e.Members) == 0 {
		return errors.ConfigurationError("GOVOTE_MEMBERS must name at least one learner")
	}
	if e.Voting != voting.Hard && e.Voting != voting.Soft {
		return errors.ConfigurationError("GOVOTE_VOTING must be %q or %q, got %q", voting.Hard, voting.Soft, e.Voting)
	}
	if !learner.ValidScaling(e.FeatureScaling) {
		return errors.ConfigurationError("GOVOTE_FEATURE_SCALING %q is not a scaling mode", e.FeatureScaling)
	}
	if e.GridSearch && e.Objective == "" {
		return errors.ConfigurationError("GOVOTE_GRID_SEARCH requires GOVOTE_OBJECTIVE")
	}
	if e.CVFolds < 2 {
		return errors.ConfigurationError("GOVOTE_CV_FOLDS must be at least 2, got %d", e.CVFolds)
	}
	if e.Workers < 1 {
		return errors.ConfigurationError("GOVOTE_WORKERS must be positive, got %d", e.Workers)
	}
	if config.Server.MaxConcurrent < 1 {
		return errors.ConfigurationError("GOVOTE_MAX_CONCURRENT must be positive, got %d", config.Server.MaxConcurrent)
	}
	return nil
}

// Logger builds the structured logger described by LOG_LEVEL and LOG_FORMAT
func (c *Config) Logger() *logging.Logger {
	return logging.FromConfig(c.Log.Level, c.Log.Format)
}

// Options converts the ensemble settings into construction options
func (e EnsembleConfig) Options(logger *logging.Logger) []voting.Option {
	return []voting.Option{
		voting.WithVoting(e.Voting),
		voting.WithFeatureScaling(e.FeatureScaling),
		voting.WithPositiveLabel(e.PositiveLabel),
		voting.WithWorkers(e.Workers),
		voting.WithLogger(logger),
	}
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated value, dropping blanks
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
