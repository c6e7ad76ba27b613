package realtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for client state.
var (
	ErrNotConnected  = errors.New("client is not connected")
	ErrInvalidConfig = errors.New("invalid config")
)

// ConnectionError represents a failure to open or keep the push connection.
type ConnectionError struct {
	URL    string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

// ErrorKind classifies client errors that cannot be returned to a caller.
type ErrorKind int

const (
	ErrParseFailure   ErrorKind = iota // inbound frame couldn't be decoded
	ErrHandlerFailure                  // handler returned an error
	ErrHandlerPanic                    // handler panicked
	ErrTransportWrite                  // failed to write to connection
	ErrConnectionLost                  // dial failed or connection dropped
)

var errorKindNames = [...]string{
	ErrParseFailure:   "ErrParseFailure",
	ErrHandlerFailure: "ErrHandlerFailure",
	ErrHandlerPanic:   "ErrHandlerPanic",
	ErrTransportWrite: "ErrTransportWrite",
	ErrConnectionLost: "ErrConnectionLost",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// ClientError is an error the client absorbed instead of returning it.
// These are routed to the ErrorHandler given with WithErrorHandler.
type ClientError struct {
	Kind      ErrorKind
	Type      string // event type, if known
	ConnID    string // connection epoch the error belongs to
	Cause     error
	Raw       []byte // raw frame (for parse failures)
	Timestamp time.Time
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (type=%s conn=%s)", e.Kind, e.Cause, e.Type, e.ConnID)
	}
	return fmt.Sprintf("%s (type=%s conn=%s)", e.Kind, e.Type, e.ConnID)
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorHandler is called for every error the client absorbs.
type ErrorHandler func(ClientError)

// LogErrors returns an ErrorHandler that logs all client errors to the given logger.
func LogErrors(logger zerolog.Logger) ErrorHandler {
	return func(e ClientError) {
		logger.Error().
			Err(e.Cause).
			Stringer("kind", e.Kind).
			Str("type", e.Type).
			Str("conn_id", e.ConnID).
			Msg("realtime client error")
	}
}
