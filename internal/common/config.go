package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration loaded from TOML.
type Config struct {
	Environment string         `toml:"environment"`
	Watch       WatchConfig    `toml:"watch"`
	AI          AIConfig       `toml:"ai"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Tasks       TasksConfig    `toml:"tasks"`
	Storage     StorageConfig  `toml:"storage"`
	GCS         GCSConfig      `toml:"gcs"`
	Logging     LoggingConfig  `toml:"logging"`
}

// WatchConfig controls the intake directory watcher.
type WatchConfig struct {
	IntakeDir      string `toml:"intake_dir" validate:"required"`
	ProcessedDir   string `toml:"processed_dir" validate:"required"`
	QuarantineDir  string `toml:"quarantine_dir" validate:"required"`
	RescanInterval string `toml:"rescan_interval"` // e.g. "30s" - fallback rescan for missed fsnotify events
	Concurrency    int    `toml:"concurrency" validate:"gte=1"`
}

// AIConfig configures the analysis adapter and its Vertex AI backend.
type AIConfig struct {
	ProjectID           string  `toml:"project_id"`
	Region              string  `toml:"region"`
	ModelName           string  `toml:"model_name"`
	ProcessingTimeoutMs int     `toml:"processing_timeout_ms" validate:"gte=1"` // overridden by AI_PROCESSING_TIMEOUT
	MaxUpstreamRetries  int     `toml:"max_upstream_retries" validate:"gte=0"`
	InitialBackoff      string  `toml:"initial_backoff"`
	MaxBackoff          string  `toml:"max_backoff"`
	BackoffMultiplier   float64 `toml:"backoff_multiplier" validate:"gte=1"`
	MaxInputChars       int     `toml:"max_input_chars" validate:"gte=1"` // normalizer output budget
}

// PipelineConfig controls stage retry behavior in the lifecycle coordinator.
type PipelineConfig struct {
	MaxRetryAttempts int    `toml:"max_retry_attempts" validate:"gte=1"`
	RetryBackoff     string `toml:"retry_backoff"` // e.g. "5s"
}

// TasksConfig is the tuning surface of the task generation engine.
// All tables have defaults so an empty section produces the documented behavior.
type TasksConfig struct {
	HighValueThreshold decimal.Decimal `toml:"high_value_threshold"`
	LeasingKeywords    []string        `toml:"leasing_keywords"`
	CriticalKeywords   []string        `toml:"critical_keywords"` // pin urgent/moderate due dates to the near edge
	HourBaselines      map[string]int  `toml:"hour_baselines"`    // category -> estimated hours
	DueDays            DueDaysConfig   `toml:"due_days"`
}

// DueDaysConfig holds due-date offsets in days, keyed by urgency.
type DueDaysConfig struct {
	Urgent           int `toml:"urgent"`
	UrgentCritical   int `toml:"urgent_critical"`
	Moderate         int `toml:"moderate"`
	ModerateCritical int `toml:"moderate_critical"`
	Strategic        int `toml:"strategic"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Backend   string          `toml:"backend" validate:"oneof=badger firestore"`
	Badger    BadgerConfig    `toml:"badger"`
	Firestore FirestoreConfig `toml:"firestore"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// FirestoreConfig holds Firestore collection names for cloud mode.
type FirestoreConfig struct {
	ProjectID       string `toml:"project_id"`
	RunsCollection  string `toml:"runs_collection"`
	TasksCollection string `toml:"tasks_collection"`
}

// GCSConfig names the buckets used by the intake gateway.
type GCSConfig struct {
	IntakeBucket     string `toml:"intake_bucket"`
	ProcessedBucket  string `toml:"processed_bucket"`
	QuarantineBucket string `toml:"quarantine_bucket"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Watch: WatchConfig{
			IntakeDir:      "./data/intake",
			ProcessedDir:   "./data/processed",
			QuarantineDir:  "./data/quarantine",
			RescanInterval: "30s",
			Concurrency:    4,
		},
		AI: AIConfig{
			Region:              "us-central1",
			ModelName:           "gemini-1.5-pro",
			ProcessingTimeoutMs: 60000,
			MaxUpstreamRetries:  3,
			InitialBackoff:      "2s",
			MaxBackoff:          "30s",
			BackoffMultiplier:   2.0,
			MaxInputChars:       100000,
		},
		Pipeline: PipelineConfig{
			MaxRetryAttempts: 3,
			RetryBackoff:     "5s",
		},
		Tasks: TasksConfig{
			HighValueThreshold: decimal.NewFromInt(10000),
			LeasingKeywords:    []string{"vacancy", "vacant", "lease", "leasing", "tenant turnover", "move-in", "move-out"},
			CriticalKeywords:   []string{"safety", "overdue", "hazard", "violation", "leak", "emergency"},
			HourBaselines: map[string]int{
				"Financial":   4,
				"Operational": 3,
				"Compliance":  3,
				"Maintenance": 2,
			},
			DueDays: DueDaysConfig{
				Urgent:           3,
				UrgentCritical:   1,
				Moderate:         14,
				ModerateCritical: 7,
				Strategic:        30,
			},
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/propertyflow.db",
			},
			Firestore: FirestoreConfig{
				RunsCollection:  "pipeline_runs",
				TasksCollection: "tasks",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error; the defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, d := range []string{cfg.Watch.RescanInterval, cfg.AI.InitialBackoff, cfg.AI.MaxBackoff, cfg.Pipeline.RetryBackoff} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("invalid duration %q in configuration: %w", d, err)
		}
	}

	return cfg, nil
}

// applyEnvOverrides maps recognized environment variables onto the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AI_PROCESSING_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.AI.ProcessingTimeoutMs = ms
		}
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT_ID"); v != "" {
		if cfg.AI.ProjectID == "" {
			cfg.AI.ProjectID = v
		}
		if cfg.Storage.Firestore.ProjectID == "" {
			cfg.Storage.Firestore.ProjectID = v
		}
	}
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ProcessingTimeout returns the AI adapter's hard timeout as a duration.
func (c AIConfig) ProcessingTimeout() time.Duration {
	return time.Duration(c.ProcessingTimeoutMs) * time.Millisecond
}

// Duration parses a configured duration string, falling back when unset.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
