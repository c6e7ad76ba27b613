package realtime

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger            zerolog.Logger
	dialer            Dialer
	clock             clockwork.Clock
	onError           ErrorHandler
	maxReconnectDelay time.Duration
}

func clientDefaults() clientOptions {
	return clientOptions{
		logger: zerolog.Nop(),
		clock:  clockwork.NewRealClock(),
	}
}

// WithLogger sets the logger the client writes lifecycle and failure events to.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithDialer replaces the default websocket dialer.
func WithDialer(d Dialer) Option {
	return func(o *clientOptions) {
		o.dialer = d
	}
}

// WithClock sets the clock used to schedule reconnect attempts.
func WithClock(clock clockwork.Clock) Option {
	return func(o *clientOptions) {
		o.clock = clock
	}
}

// WithErrorHandler registers a callback for errors the client absorbs
// (parse failures, handler failures, dropped connections).
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *clientOptions) {
		o.onError = fn
	}
}

// WithMaxReconnectDelay turns the fixed reconnect delay into an exponential
// backoff starting at Config.ReconnectDelay and capped at max. The backoff
// resets after every successful open.
func WithMaxReconnectDelay(max time.Duration) Option {
	return func(o *clientOptions) {
		o.maxReconnectDelay = max
	}
}
