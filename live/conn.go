package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/divaparadises/studio/internal/log"
)

// ErrSessionClosed is returned when reading or writing a closed session.
var ErrSessionClosed = errors.New("live session closed")

// handshakeTimeout bounds the wait for setupComplete when ctx has no
// deadline of its own.
const handshakeTimeout = 30 * time.Second

// Option configures how a client dials.
type Option func(*dialOptions)

type dialOptions struct {
	endpoint string
	dialer   *websocket.Dialer
}

// WithEndpoint replaces the WebSocket URL, e.g. for a test server.
func WithEndpoint(url string) Option {
	return func(o *dialOptions) { o.endpoint = url }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *dialOptions) { o.dialer = d }
}

func newDialOptions(endpoint string, opts []Option) dialOptions {
	o := dialOptions{endpoint: endpoint, dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// conn is a JSON message socket safe for one reader and many writers.
type conn struct {
	ws        *websocket.Conn
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func dial(ctx context.Context, o dialOptions, apiKey string) (*conn, error) {
	header := http.Header{}
	if apiKey != "" {
		header.Set("x-goog-api-key", apiKey)
	}
	ws, resp, err := o.dialer.DialContext(ctx, o.endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting to %s: %s: %w", o.endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("connecting to %s: %w", o.endpoint, err)
	}
	return &conn{ws: ws}, nil
}

func (c *conn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return closedOr(err)
	}
	return nil
}

// readJSON decodes the next message into v. Messages that are not JSON are
// skipped.
func (c *conn) readJSON(v any) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return closedOr(err)
		}
		if err := json.Unmarshal(data, v); err != nil {
			log.Warnf("skipping non-JSON message (%d bytes): %v", len(data), err)
			continue
		}
		return nil
	}
}

// handshake sends setup and waits for the server's setupComplete.
func (c *conn) handshake(ctx context.Context, setup any) error {
	if err := c.writeJSON(setup); err != nil {
		return fmt.Errorf("sending setup: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(handshakeTimeout)
	}
	_ = c.ws.SetReadDeadline(deadline)
	defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()

	stop := context.AfterFunc(ctx, func() { _ = c.ws.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		var msg struct {
			SetupComplete *json.RawMessage `json:"setupComplete"`
			Error         *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := c.readJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("waiting for setupComplete: %w", err)
		}
		if msg.Error != nil {
			return fmt.Errorf("setup rejected: %s", msg.Error.Message)
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

// close says goodbye and releases the socket. It is safe to call more than
// once.
func (c *conn) close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.wmu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func closedOr(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return err
}
