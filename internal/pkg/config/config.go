package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresURL string `env:"POSTGRES_URL,required"`

	// BackupAck must equal the backup acknowledgment literal before the
	// run touches any data.
	BackupAck              string `env:"MIGRATION_ACK"`
	UnifiedAlertingEnabled bool   `env:"UNIFIED_ALERTING_ENABLED" envDefault:"false"`

	// SkipFailedAlerts switches the run from all-or-nothing to
	// skip-and-report.
	SkipFailedAlerts bool `env:"MIGRATION_SKIP_FAILED" envDefault:"false"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
