package realtime

import "context"

// Conn is one open push connection. The default implementation is a
// gorilla websocket (websocket.go); tests substitute in-memory conns.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one text frame. Safe for concurrent use.
	WriteMessage(data []byte) error

	// Close shuts the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens connections to the push endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}
