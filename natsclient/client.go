package natsclient

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrClosed       = stderrors.New("client is closed")
)

// Client manages one NATS connection.
type Client struct {
	url     string
	status  atomic.Int32
	logger  *slog.Logger
	metrics *metric.Metrics

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
	subs map[*nats.Subscription]struct{}

	// Connection options
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	timeout        time.Duration
	drainTimeout   time.Duration
	healthInterval time.Duration
	clientName     string

	// Authentication, cleared on close
	username string
	password string
	token    string

	tlsConfig *tls.Config

	onDisconnect func(error)
	onReconnect  func()

	healthDone chan struct{}

	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:            url,
		logger:         slog.Default(),
		subs:           make(map[*nats.Subscription]struct{}),
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		pingInterval:   30 * time.Second,
		healthInterval: 10 * time.Second,
		timeout:        5 * time.Second,
		drainTimeout:   5 * time.Second,
		clientName:     "actmeter",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "natsclient", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient", "url", url)
	c.setStatus(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(int32(status))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(status == StatusConnected)
	}
}

// IsHealthy returns true if the connection is usable
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// GetConnection returns the current NATS connection
func (c *Client) GetConnection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.tlsConfig != nil {
		opts = append(opts, nats.Secure(c.tlsConfig))
	}
	return opts
}

// Connect establishes the connection. It honours ctx while dialing.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapFatal(ErrClosed, "natsclient", "Connect", "check state")
	}

	c.setStatus(StatusConnecting)
	c.logger.Debug("Connecting to NATS")

	type result struct {
		conn *nats.Conn
		err  error
	}
	connectDone := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		connectDone <- result{conn, err}
	}()

	var conn *nats.Conn
	select {
	case r := <-connectDone:
		if r.err != nil {
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(r.err, "natsclient", "Connect", "establish connection")
		}
		conn = r.conn
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		go func() {
			if r := <-connectDone; r.conn != nil {
				r.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "natsclient", "Connect", "connection cancelled")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		c.logger.Warn("JetStream unavailable", "error", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.js = js
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS")

	if c.healthInterval > 0 {
		c.startHealthMonitoring()
	}
	return nil
}

// WaitForConnection waits for the connection to be established
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close drains and closes the connection. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.stopHealthMonitoring()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.subs = make(map[*nats.Subscription]struct{})
	c.username, c.password, c.token = "", "", ""
	c.mu.Unlock()

	var drainErr error
	if conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- conn.Drain()
		}()

		timer := time.NewTimer(drainTimeout)
		defer timer.Stop()
		select {
		case err := <-drainDone:
			drainErr = errors.Wrap(err, "natsclient", "Close", "drain connection")
		case <-timer.C:
			drainErr = errors.WrapTransient(fmt.Errorf("drain timeout after %v", drainTimeout),
				"natsclient", "Close", "drain connection")
		case <-ctx.Done():
			drainErr = errors.WrapTransient(ctx.Err(), "natsclient", "Close", "drain connection")
		}
		conn.Close()
	}

	c.setStatus(StatusClosed)
	if drainErr != nil {
		c.logger.Warn("NATS drain incomplete", "error", drainErr)
	}
	return drainErr
}

func (c *Client) connected() (*nats.Conn, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// RTT returns the round-trip time to the NATS server
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.connected()
	if err != nil {
		return 0, err
	}
	return conn.RTT()
}

// Publish publishes a message to a NATS subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.connected()
	if err != nil {
		return errors.WrapTransient(err, "natsclient", "Publish", "publish to "+subject)
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "natsclient", "Publish", "publish to "+subject)
	}
	return nil
}

// Request sends data to subject and returns the reply body. Without a
// deadline on ctx the client timeout applies. A subject nobody listens on
// fails fast with nats.ErrNoResponders.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "Request", "request "+subject)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "Request", "request "+subject)
	}
	return msg.Data, nil
}

// Handle subscribes handler to subject and answers requests with its
// return value, which is dropped when the sender asked for no reply. The
// returned function unsubscribes.
func (c *Client) Handle(subject string, handler func(data []byte) []byte) (func() error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return nil, errors.WrapTransient(ErrNotConnected, "natsclient", "Handle", "subscribe "+subject)
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.logger.Warn("Reply failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "Handle", "subscribe "+subject)
	}
	c.subs[sub] = struct{}{}

	return func() error {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) &&
			!stderrors.Is(err, nats.ErrBadSubscription) {
			return errors.Wrap(err, "natsclient", "Handle", "unsubscribe "+subject)
		}
		return nil
	}, nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.js == nil {
		return nil, errors.WrapTransient(ErrNotConnected, "natsclient", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

// KeyValue opens the bucket named in cfg, creating it when missing.
func (c *Client) KeyValue(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		return bucket, nil
	}
	if !stderrors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, errors.WrapTransient(err, "natsclient", "KeyValue", "open bucket "+cfg.Bucket)
	}

	bucket, err = js.CreateOrUpdateKeyValue(ctx, cfg)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "KeyValue", "create bucket "+cfg.Bucket)
	}
	c.logger.Info("Created KV bucket", "bucket", cfg.Bucket)
	return bucket, nil
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("NATS disconnected", "error", err)
	if c.onDisconnect != nil {
		go c.onDisconnect(err)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	c.logger.Info("NATS reconnected")
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
	if c.onReconnect != nil {
		go c.onReconnect()
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusDisconnected)
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	c.logger.Error("NATS error", "subject", subject, "error", err)
}

// startHealthMonitoring probes RTT periodically and records it.
func (c *Client) startHealthMonitoring() {
	c.stopHealthMonitoring()

	c.mu.Lock()
	done := make(chan struct{})
	c.healthDone = done
	interval := c.healthInterval
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rtt, err := c.RTT()
				if err != nil {
					if c.Status() == StatusConnected {
						c.setStatus(StatusReconnecting)
					}
					continue
				}
				if c.Status() == StatusReconnecting {
					c.setStatus(StatusConnected)
				}
				if c.metrics != nil {
					c.metrics.RecordNATSRTT(rtt)
				}
			}
		}
	}()
}

func (c *Client) stopHealthMonitoring() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthDone != nil {
		close(c.healthDone)
		c.healthDone = nil
	}
}
