package websocket

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/errors"
)

// Name is the transport name used in logs and metric labels.
const Name = "websocket"

// Transport is the websocket client.Transport.
type Transport struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger

	invalidLog *rate.Limiter

	mu        sync.Mutex
	conn      *websocket.Conn
	stopClose func() bool

	reading atomic.Bool
}

var _ client.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDialer replaces the dialer, e.g. to set a proxy or TLS config.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dialer = d
		}
	}
}

// WithTLSConfig sets the TLS configuration used for wss:// URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(t *Transport) {
		if cfg != nil {
			t.dialer.TLSClientConfig = cfg
		}
	}
}

// New creates a websocket transport. Zero config fields take defaults.
func New(cfg Config, opts ...Option) (*Transport, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		cfg:        cfg,
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:     slog.Default(),
		invalidLog: rate.NewLimiter(rate.Every(10*time.Second), 3),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "websocket", "url", cfg.URL)
	return t, nil
}

// Name implements client.Transport.
func (t *Transport) Name() string { return Name }

// Connect dials the aggregator and sends the subscription request. The
// socket is closed when ctx ends.
func (t *Transport) Connect(ctx context.Context, _ client.Sink) error {
	conn, resp, err := t.dialer.DialContext(ctx, t.cfg.URL, t.cfg.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return errors.WrapTransient(err, "websocket", "Connect", "dial "+t.cfg.URL)
	}

	conn.SetReadLimit(t.cfg.ReadLimit)
	conn.SetWriteDeadline(time.Now().Add(t.cfg.HandshakeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(client.SubscribeRequest)); err != nil {
		conn.Close()
		return errors.WrapTransient(err, "websocket", "Connect", "send subscription")
	}
	conn.SetWriteDeadline(time.Time{})

	t.mu.Lock()
	t.conn = conn
	t.stopClose = context.AfterFunc(ctx, func() { conn.Close() })
	t.mu.Unlock()

	t.logger.Debug("Subscribed to combat data")
	return nil
}

// Run reads messages until the aggregator closes the socket, the sink stops
// accepting, or ctx ends.
func (t *Transport) Run(ctx context.Context, sink client.Sink) error {
	conn := t.current()
	if conn == nil {
		return errors.WrapFatal(errors.ErrNotStarted, "websocket", "Run", "check connection")
	}

	t.reading.Store(true)
	defer func() {
		t.reading.Store(false)
		t.release(conn)
	}()

	for {
		if !sink.Active() {
			return nil
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				t.logger.Debug("Aggregator closed the socket", "error", err)
				return nil
			}
			return errors.WrapTransient(err, "websocket", "Run", "read message")
		}

		if !utf8.Valid(message) {
			if t.invalidLog.Allow() {
				t.logger.Warn("Skipping message that is not valid UTF-8", "bytes", len(message))
			}
			continue
		}

		if !sink.Ingest(message) {
			return nil
		}
	}
}

// Close starts the closing handshake. A running read loop ends when the
// aggregator echoes the close frame; otherwise the socket is closed now.
func (t *Transport) Close(ctx context.Context) error {
	conn := t.current()
	if conn == nil {
		return nil
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.cfg.CloseTimeout)
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := conn.WriteControl(websocket.CloseMessage, msg, deadline)
	if err == websocket.ErrCloseSent {
		err = nil
	}

	if !t.reading.Load() {
		t.release(conn)
	}
	return errors.WrapTransient(err, "websocket", "Close", "send close frame")
}

// Abort closes the socket without a closing handshake.
func (t *Transport) Abort() {
	if conn := t.current(); conn != nil {
		conn.Close()
	}
}

// Reset drops any socket left from the previous session.
func (t *Transport) Reset() error {
	if conn := t.current(); conn != nil {
		t.release(conn)
	}
	return nil
}

func (t *Transport) current() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// release closes conn and forgets it if it is still the current socket.
func (t *Transport) release(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		if t.stopClose != nil {
			t.stopClose()
			t.stopClose = nil
		}
	}
	t.mu.Unlock()
	conn.Close()
}
