// Package config loads daemon configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all daemon settings.
type Config struct {
	LogLevel       string        `yaml:"log_level" env:"DRAFTD_LOG_LEVEL"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"DRAFTD_POLL_INTERVAL"`
	PickTimeout    time.Duration `yaml:"pick_timeout" env:"DRAFTD_PICK_TIMEOUT"`
	BatchSize      int           `yaml:"batch_size" env:"DRAFTD_BATCH_SIZE"`
	DatabaseURL    string        `yaml:"database_url" env:"DRAFTD_DATABASE_URL"`
	NATSURL        string        `yaml:"nats_url" env:"DRAFTD_NATS_URL"`
	GatewayAddr    string        `yaml:"gateway_addr" env:"DRAFTD_GATEWAY_ADDR"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"DRAFTD_ALLOWED_ORIGINS"`
}

// Default returns the built-in configuration: 60s scheduling cadence and a
// 300s pick timeout.
func Default() Config {
	return Config{
		LogLevel:       "info",
		PollInterval:   60 * time.Second,
		PickTimeout:    300 * time.Second,
		BatchSize:      32,
		GatewayAddr:    ":8090",
		AllowedOrigins: []string{"*"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return cfg, fmt.Errorf("poll_interval must be positive")
	}
	if cfg.PickTimeout <= 0 {
		return cfg, fmt.Errorf("pick_timeout must be positive")
	}
	if cfg.BatchSize <= 0 {
		return cfg, fmt.Errorf("batch_size must be positive")
	}
	return cfg, nil
}
