package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/coldfarms/realtime/internal/relay"
)

// listenConfig is read from the environment first; flags override it.
type listenConfig struct {
	FarmerID       string        `env:"COLDFARMS_FARMER_ID"`
	StatusInterval time.Duration `env:"STATUS_INTERVAL" envDefault:"1m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`

	// DatabaseURL enables the Postgres journal when set.
	DatabaseURL string `env:"DATABASE_URL"`

	// Relay.Addr enables the Redis relay when set.
	Relay relay.Config
}

func loadConfig(args []string) (listenConfig, error) {
	var cfg listenConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error getting env configs: %w", err)
	}

	fs := flag.NewFlagSet("coldfarms-listen", flag.ContinueOnError)
	fs.StringVar(&cfg.FarmerID, "farmer", cfg.FarmerID, "farmer ID to authenticate as (empty = unauthenticated)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to a rotated file instead of stdout")
	fs.DurationVar(&cfg.StatusInterval, "status-interval", cfg.StatusInterval, "how often to log connection state (0 disables)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return cfg, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return cfg, nil
}
