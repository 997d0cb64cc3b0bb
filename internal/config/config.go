package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	SourcesFile           string        `mapstructure:"sources_file"`
	PublishersFile        string        `mapstructure:"publishers_file"`
	AlertsFile            string        `mapstructure:"alerts_file"`
	IngestIntervalSeconds int64         `mapstructure:"ingest_interval"`
	IngestInterval        time.Duration `mapstructure:"-"`

	Tickers []string `mapstructure:"tickers"`

	// Fetch orchestration knobs.
	FetchLookbackDays int `mapstructure:"fetch_lookback_days"`
	FetchLimit        int `mapstructure:"fetch_limit"`
	MaxWorkers        int `mapstructure:"max_workers"`

	// Failure tracking and alerting knobs.
	FailureThreshold     int   `mapstructure:"failure_threshold"`
	FailureWindowMinutes int   `mapstructure:"failure_window_minutes"`
	AlertCooldownMinutes int   `mapstructure:"alert_cooldown_minutes"`
	LatencyThresholdMs   int64 `mapstructure:"latency_threshold_ms"`

	// Per-source quota (calls allowed per hour).
	QuotaCallsPerHour int `mapstructure:"quota_calls_per_hour"`

	// Optional GCP Pub/Sub metrics sink. Metrics go to the log when unset.
	MetricsProjectID string `mapstructure:"metrics_project_id"`
	MetricsTopic     string `mapstructure:"metrics_topic"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "tickerwire-ingest")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("alerts_file", "./configs/alerts.yaml")
	v.SetDefault("ingest_interval", 900) // seconds
	v.SetDefault("tickers", []string{"AAPL", "MSFT", "GOOG"})
	v.SetDefault("fetch_lookback_days", 7)
	v.SetDefault("fetch_limit", 50)
	v.SetDefault("max_workers", 4)
	v.SetDefault("failure_threshold", 3)
	v.SetDefault("failure_window_minutes", 15)
	v.SetDefault("alert_cooldown_minutes", 5)
	v.SetDefault("latency_threshold_ms", int64(30000))
	v.SetDefault("quota_calls_per_hour", 60)
	v.SetDefault("metrics_project_id", "")
	v.SetDefault("metrics_topic", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.IngestInterval = time.Duration(cfg.IngestIntervalSeconds) * time.Second
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// validate rejects configurations that would break the pipeline at runtime.
func (c *Config) validate() error {
	if c.IngestIntervalSeconds <= 0 {
		return fmt.Errorf("invalid ingest_interval (must be positive seconds)")
	}
	if c.FetchLookbackDays <= 0 {
		return fmt.Errorf("invalid fetch_lookback_days (must be positive)")
	}
	if c.FetchLimit <= 0 {
		return fmt.Errorf("invalid fetch_limit (must be positive)")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("invalid max_workers (must be positive)")
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("invalid failure_threshold (must be positive)")
	}
	if c.FailureWindowMinutes <= 0 {
		return fmt.Errorf("invalid failure_window_minutes (must be positive)")
	}
	if c.AlertCooldownMinutes <= 0 {
		return fmt.Errorf("invalid alert_cooldown_minutes (must be positive)")
	}
	if c.LatencyThresholdMs <= 0 {
		return fmt.Errorf("invalid latency_threshold_ms (must be positive)")
	}
	if c.QuotaCallsPerHour <= 0 {
		return fmt.Errorf("invalid quota_calls_per_hour (must be positive)")
	}
	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	return nil
}
