package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketDialer implements Dialer over gorilla/websocket.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the opening handshake. Zero means no timeout.
	HandshakeTimeout time.Duration

	// PingInterval is how often a ping is written. Zero or negative disables pings.
	PingInterval time.Duration
}

// Dial opens a websocket connection and starts its heartbeat.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &ConnectionError{URL: url, Reason: err.Error()}
	}

	c := &wsConn{
		conn: ws,
		done: make(chan struct{}),
	}
	if d.PingInterval > 0 {
		// A missed pong within two intervals fails the next read.
		readWait := 2 * d.PingInterval
		ws.SetReadDeadline(time.Now().Add(readWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readWait))
		})
		go c.heartbeatLoop(d.PingInterval)
	}
	return c, nil
}

// wsConn adapts *websocket.Conn to Conn.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
