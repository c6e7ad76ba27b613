package realtime

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultURL is the coldfarms push endpoint.
const DefaultURL = "wss://cold-farm-dashboard-rosnuza.replit.app/ws"

// Config holds the configuration for a realtime client.
type Config struct {
	// URL is the websocket push endpoint (ws:// or wss://).
	// Fallback: COLDFARMS_WS_URL environment variable, then DefaultURL.
	URL string `env:"COLDFARMS_WS_URL" envDefault:"wss://cold-farm-dashboard-rosnuza.replit.app/ws"`

	// ReconnectDelay is the wait between a close and the next connection attempt.
	// Fallback: COLDFARMS_RECONNECT_DELAY, default 5s.
	ReconnectDelay time.Duration `env:"COLDFARMS_RECONNECT_DELAY" envDefault:"5s"`

	// HandshakeTimeout bounds the websocket opening handshake.
	// Fallback: COLDFARMS_HANDSHAKE_TIMEOUT, default 10s.
	HandshakeTimeout time.Duration `env:"COLDFARMS_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// PingInterval is how often a ping is written on an open connection.
	// A negative value disables pings.
	// Fallback: COLDFARMS_PING_INTERVAL, default 30s.
	PingInterval time.Duration `env:"COLDFARMS_PING_INTERVAL" envDefault:"30s"`
}

// resolveConfig fills empty fields from environment variables and validates them.
func resolveConfig(cfg Config) (Config, error) {
	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return cfg, fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	if cfg.URL == "" {
		cfg.URL = fromEnv.URL
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = fromEnv.ReconnectDelay
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = fromEnv.HandshakeTimeout
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = fromEnv.PingInterval
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return cfg, fmt.Errorf("%w: parse URL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return cfg, fmt.Errorf("%w: URL scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if cfg.ReconnectDelay < 0 {
		return cfg, fmt.Errorf("%w: ReconnectDelay must not be negative", ErrInvalidConfig)
	}
	if cfg.HandshakeTimeout < 0 {
		return cfg, fmt.Errorf("%w: HandshakeTimeout must not be negative", ErrInvalidConfig)
	}

	return cfg, nil
}
