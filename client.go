package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// State is the connection state of a Client.
type State int

const (
	StateIdle             State = iota // no connection, no retry armed
	StateConnecting                    // dial in flight
	StateOpen                          // connected and authenticated
	StatePendingReconnect              // connection lost, retry timer armed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateConnecting:       "connecting",
	StateOpen:             "open",
	StatePendingReconnect: "pending_reconnect",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Client is the realtime update client. It owns at most one connection at a
// time, the reconnect timer, and the subscriber registry.
type Client struct {
	cfg      Config
	dialer   Dialer
	clock    clockwork.Clock
	logger   zerolog.Logger
	onError  ErrorHandler
	registry *handlerRegistry

	mu         sync.Mutex
	state      State
	conn       Conn
	identity   string // identity of the most recent Connect, reused by retries
	epoch      uint64 // bumped on every attempt and on Disconnect; stale work compares against it
	connID     string
	backoff    *backoff
	cancelDial context.CancelFunc
	timer      clockwork.Timer
	dropped    bool // a connection was lost since the last explicit Connect

	disconnectFn func(error)
	reconnectFn  func()
}

// NewClient creates a new realtime client with the given configuration.
// The client is idle until Connect is called.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	o := clientDefaults()
	for _, opt := range opts {
		opt(&o)
	}

	dialer := o.dialer
	if dialer == nil {
		dialer = &WebSocketDialer{
			HandshakeTimeout: resolved.HandshakeTimeout,
			PingInterval:     resolved.PingInterval,
		}
	}

	maxDelay := resolved.ReconnectDelay
	if o.maxReconnectDelay > maxDelay {
		maxDelay = o.maxReconnectDelay
	}

	return &Client{
		cfg:      resolved,
		dialer:   dialer,
		clock:    o.clock,
		logger:   o.logger.With().Str("component", "realtime").Logger(),
		onError:  o.onError,
		registry: newHandlerRegistry(),
		backoff:  newBackoff(resolved.ReconnectDelay, maxDelay),
	}, nil
}

// Connect starts connecting to the push endpoint and returns immediately.
// When identity is non-empty an auth frame carrying it is the first frame
// written on every connection, including reconnects. Connect is a no-op
// while another attempt is in flight; otherwise any existing connection is
// closed and replaced.
func (c *Client) Connect(identity string) {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("connect ignored, attempt already in flight")
		return
	}

	c.identity = identity
	c.dropped = false
	c.backoff.reset()
	old := c.teardownLocked()
	epoch, connID, ctx := c.beginAttemptLocked()
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	c.logger.Info().
		Str("url", c.cfg.URL).
		Str("conn_id", connID).
		Bool("authenticated", identity != "").
		Msg("connecting")

	go c.dial(ctx, epoch, connID, identity)
}

// Disconnect cancels any pending reconnect, closes the connection, and
// returns the client to idle. Subscriptions are kept. Safe to call at any time.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	old := c.teardownLocked()
	c.epoch++
	c.state = StateIdle
	c.dropped = false
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	c.logger.Info().Msg("disconnected")
}

// Subscribe registers fn for eventType and returns a func that removes
// exactly this registration. Handlers for a type run in subscription order.
// Subscribing to Wildcard receives every frame, after the type handlers.
func (c *Client) Subscribe(eventType string, fn HandlerFunc) (unsubscribe func()) {
	sub := c.registry.add(eventType, fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			c.registry.remove(sub)
		})
	}
}

// Dispatch decodes a raw frame and delivers it to the subscribers of its
// type, then to wildcard subscribers. Malformed frames are logged and
// dropped. Handler errors and panics are absorbed per handler.
func (c *Client) Dispatch(raw []byte) {
	c.dispatch(raw, func() bool { return true })
}

// Send writes v as a JSON frame if the connection is open. Nothing is
// queued: a message sent while disconnected is dropped and ErrNotConnected
// is returned.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	connID := c.connID
	c.mu.Unlock()

	if !open || conn == nil {
		c.logger.Warn().Msg("not connected, message dropped")
		return ErrNotConnected
	}

	var data []byte
	switch m := v.(type) {
	case json.RawMessage:
		data = m
	case []byte:
		data = m
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		data = b
	}

	if err := conn.WriteMessage(data); err != nil {
		c.report(ClientError{Kind: ErrTransportWrite, ConnID: connID, Cause: err})
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity of the most recent Connect call.
func (c *Client) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// OnDisconnect registers a callback invoked when the connection drops or a
// connection attempt fails.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectFn = fn
}

// OnReconnect registers a callback invoked when a connection opens after
// an earlier one was lost.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectFn = fn
}

// teardownLocked stops the retry timer, cancels an in-flight dial, and
// detaches the current connection. The caller closes the returned conn
// after releasing the lock.
func (c *Client) teardownLocked() Conn {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	old := c.conn
	c.conn = nil
	return old
}

func (c *Client) beginAttemptLocked() (uint64, string, context.Context) {
	c.epoch++
	c.connID = uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.state = StateConnecting
	return c.epoch, c.connID, ctx
}

func (c *Client) dial(ctx context.Context, epoch uint64, connID, identity string) {
	conn, err := c.dialer.Dial(ctx, c.cfg.URL)
	if err == nil && identity != "" {
		frame, merr := marshalAuth(identity)
		if merr == nil {
			merr = conn.WriteMessage(frame)
		}
		if merr != nil {
			conn.Close()
			conn = nil
			err = fmt.Errorf("send auth: %w", merr)
		}
	}

	c.mu.Lock()
	if epoch != c.epoch {
		// Superseded by Disconnect or a newer Connect while dialing.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if err != nil {
		c.dropped = true
		delay := c.scheduleReconnectLocked(epoch)
		disconnectFn := c.disconnectFn
		c.mu.Unlock()

		c.logger.Warn().Err(err).Str("conn_id", connID).Dur("retry_in", delay).Msg("connection attempt failed")
		c.report(ClientError{Kind: ErrConnectionLost, ConnID: connID, Cause: err})
		if disconnectFn != nil {
			disconnectFn(err)
		}
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.backoff.reset()
	restored := c.dropped
	c.dropped = false
	reconnectFn := c.reconnectFn
	c.mu.Unlock()

	c.logger.Info().Str("conn_id", connID).Msg("connected")
	if identity != "" {
		c.logger.Debug().Str("conn_id", connID).Str("farmer_id", identity).Msg("auth frame sent")
	}
	if restored && reconnectFn != nil {
		reconnectFn()
	}

	c.readLoop(epoch, connID, conn)
}

func (c *Client) readLoop(epoch uint64, connID string, conn Conn) {
	live := func() bool { return c.isCurrent(epoch) }
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(epoch, connID, err)
			return
		}
		if !live() {
			return
		}
		c.dispatch(data, live)
	}
}

func (c *Client) isCurrent(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch == c.epoch && c.state == StateOpen
}

func (c *Client) handleClose(epoch uint64, connID string, cause error) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.dropped = true
	delay := c.scheduleReconnectLocked(epoch)
	disconnectFn := c.disconnectFn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.logger.Warn().Err(cause).Str("conn_id", connID).Dur("retry_in", delay).Msg("connection lost")
	c.report(ClientError{Kind: ErrConnectionLost, ConnID: connID, Cause: cause})
	if disconnectFn != nil {
		disconnectFn(cause)
	}
}

func (c *Client) scheduleReconnectLocked(epoch uint64) time.Duration {
	c.state = StatePendingReconnect
	delay := c.backoff.next()
	c.timer = c.clock.AfterFunc(delay, func() {
		c.reconnect(epoch)
	})
	return delay
}

// reconnect runs when the retry timer fires. A timer that fired after
// Disconnect or a newer Connect finds a different epoch and does nothing.
func (c *Client) reconnect(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != StatePendingReconnect {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	identity := c.identity
	next, connID, ctx := c.beginAttemptLocked()
	c.mu.Unlock()

	c.logger.Info().Str("conn_id", connID).Msg("reconnecting")
	go c.dial(ctx, next, connID, identity)
}

// dispatch delivers one raw frame. live is checked before every handler so
// that no handler starts after its connection has been superseded.
func (c *Client) dispatch(raw []byte, live func() bool) {
	msg, err := parseFrame(raw)
	if err != nil {
		c.report(ClientError{Kind: ErrParseFailure, Raw: raw, Cause: err})
		return
	}

	c.logger.Debug().Str("type", msg.Type).RawJSON("data", rawOrNull(msg.Data)).Msg("frame received")

	if msg.Type != Wildcard {
		for _, sub := range c.registry.lookup(msg.Type) {
			if !live() {
				return
			}
			c.invoke(sub, msg)
		}
	}
	for _, sub := range c.registry.lookup(Wildcard) {
		if !live() {
			return
		}
		c.invoke(sub, msg)
	}
}

func (c *Client) invoke(sub *subscription, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.report(ClientError{
				Kind:  ErrHandlerPanic,
				Type:  msg.Type,
				Cause: fmt.Errorf("handler panic: %v", r),
			})
		}
	}()

	if err := sub.fn(msg); err != nil {
		c.report(ClientError{Kind: ErrHandlerFailure, Type: msg.Type, Cause: err})
	}
}

func (c *Client) report(e ClientError) {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.clock.Now()
	}
	if e.Kind != ErrConnectionLost {
		c.logger.Error().
			Err(e.Cause).
			Stringer("kind", e.Kind).
			Str("type", e.Type).
			Msg("realtime client error")
	}
	if c.onError != nil {
		c.onError(e)
	}
}

func rawOrNull(data json.RawMessage) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	return data
}
