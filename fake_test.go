package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var errFakeClosed = errors.New("fake conn closed")

// fakeConn is an in-memory Conn. Frames pushed with push are returned by
// ReadMessage; remoteClose makes the pending read fail like a dropped socket.
type fakeConn struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		return nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errFakeClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.written = append(c.written, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

func (c *fakeConn) remoteClose() {
	c.Close()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) getWritten() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// fakeDialer hands out fakeConns. With err set every dial fails; with
// block set every dial waits for it to close or for ctx to end.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
	urls  []string
	err   error
	block chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.urls = append(d.urls, url)
	block := d.block
	err := d.err
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// fakeClock is the part of the clockwork fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
	quiet   = 100 * time.Millisecond
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeDialer, fakeClock) {
	t.Helper()
	dialer := &fakeDialer{}
	clock := clockwork.NewFakeClock()

	all := append([]Option{WithDialer(dialer), WithClock(clock)}, opts...)
	client, err := NewClient(Config{URL: "ws://coldfarms.test/ws"}, all...)
	require.NoError(t, err)
	t.Cleanup(client.Disconnect)
	return client, dialer, clock
}

func waitState(t *testing.T, c *Client, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, waitFor, tick,
		"state never became %s (is %s)", want, c.State())
}
