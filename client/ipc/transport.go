package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/errors"
)

// Name is the transport name used in logs and metric labels.
const Name = "ipc"

// Handshake failure causes.
var (
	ErrAggregatorUnavailable = errors.New("aggregator listener not available")
	ErrSubscriberRejected    = errors.New("subscriber registration rejected")
	ErrFilterRejected        = errors.New("subscription filter rejected")
)

var (
	replyTrue  = []byte("true")
	replyFalse = []byte("false")
)

// Bus is the request/reply message bus shared with the aggregator plugin.
// natsclient.Client implements it.
type Bus interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
	Handle(subject string, handler func(data []byte) []byte) (func() error, error)
	Publish(ctx context.Context, subject string, data []byte) error
}

type registration struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
}

// Transport is the IPC client.Transport.
type Transport struct {
	bus    Bus
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	name        string
	unsubscribe func() error
	registered  bool
	done        chan struct{}
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

// New creates an IPC transport over bus.
func New(bus Bus, cfg Config, opts ...Option) (*Transport, error) {
	if bus == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "ipc", "New", "check bus")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		bus:    bus,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "ipc", "prefix", cfg.Prefix)
	t.name = t.newName()
	return t, nil
}

// Name implements client.Transport.
func (t *Transport) Name() string { return Name }

// SubscriberName returns the name registered for the current session.
func (t *Transport) SubscriberName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *Transport) newName() string {
	return t.cfg.NamePrefix + "-" + uuid.NewString()
}

func (t *Transport) request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()
	return t.bus.Request(ctx, subject, data)
}

func accepted(reply []byte) bool {
	return bytes.Equal(bytes.TrimSpace(reply), replyTrue)
}

// Connect runs the three-step handshake.
func (t *Transport) Connect(ctx context.Context, sink client.Sink) error {
	t.mu.Lock()
	name := t.name
	t.mu.Unlock()
	log := t.logger.With("subscriber", name)

	reply, err := t.request(ctx, t.cfg.listeningSubject(), nil)
	if err != nil || !accepted(reply) {
		if err == nil {
			err = fmt.Errorf("probe reply %q", reply)
		}
		return errors.WrapTransient(fmt.Errorf("%w: %w", ErrAggregatorUnavailable, err), "ipc", "Connect", "probe aggregator")
	}

	delivery := t.cfg.deliverySubject(name)
	unsubscribe, err := t.bus.Handle(delivery, func(data []byte) []byte {
		if sink.Ingest(data) {
			return replyTrue
		}
		return replyFalse
	})
	if err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrSubscriptionFailed, err), "ipc", "Connect", "install delivery handler")
	}

	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.done = make(chan struct{})
	t.mu.Unlock()

	body, err := json.Marshal(registration{Name: name, Subject: delivery})
	if err != nil {
		t.dropHandler()
		return errors.WrapFatal(err, "ipc", "Connect", "encode registration")
	}
	reply, err = t.request(ctx, t.cfg.createSubject(), body)
	if err != nil || !accepted(reply) {
		t.dropHandler()
		if err == nil {
			return errors.WrapFatal(fmt.Errorf("%w: reply %q", ErrSubscriberRejected, reply), "ipc", "Connect", "register subscriber")
		}
		return errors.WrapTransient(fmt.Errorf("%w: %w", ErrSubscriberRejected, err), "ipc", "Connect", "register subscriber")
	}

	t.mu.Lock()
	t.registered = true
	t.mu.Unlock()

	reply, err = t.request(ctx, t.cfg.filterSubject(name), []byte(client.SubscribeRequest))
	if err != nil || !accepted(reply) {
		t.deregister(context.Background())
		t.dropHandler()
		if err == nil {
			return errors.WrapFatal(fmt.Errorf("%w: reply %q", ErrFilterRejected, reply), "ipc", "Connect", "push filter")
		}
		return errors.WrapTransient(fmt.Errorf("%w: %w", ErrFilterRejected, err), "ipc", "Connect", "push filter")
	}

	log.Debug("Subscribed to combat data", "delivery", delivery)
	return nil
}

// Run waits while the aggregator pushes payloads to the delivery handler.
// It returns when the session is closed or ctx ends.
func (t *Transport) Run(ctx context.Context, _ client.Sink) error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return errors.WrapFatal(errors.ErrNotStarted, "ipc", "Run", "check session")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close removes the subscriber from the aggregator and stops deliveries.
func (t *Transport) Close(ctx context.Context) error {
	err := t.deregister(ctx)
	t.dropHandler()
	return err
}

// Abort stops deliveries without telling the aggregator.
func (t *Transport) Abort() {
	t.dropHandler()
}

// Reset ends any session left over and picks a new subscriber name.
func (t *Transport) Reset() error {
	t.dropHandler()
	t.mu.Lock()
	t.registered = false
	t.name = t.newName()
	t.mu.Unlock()
	return nil
}

func (t *Transport) deregister(ctx context.Context) error {
	t.mu.Lock()
	registered, name := t.registered, t.name
	t.registered = false
	t.mu.Unlock()
	if !registered {
		return nil
	}

	body, err := json.Marshal(registration{Name: name})
	if err != nil {
		return errors.WrapFatal(err, "ipc", "Close", "encode removal")
	}
	if _, err := t.request(ctx, t.cfg.removeSubject(), body); err != nil {
		return errors.WrapTransient(err, "ipc", "Close", "remove subscriber")
	}
	return nil
}

// dropHandler unsubscribes the delivery handler and ends Run.
func (t *Transport) dropHandler() {
	t.mu.Lock()
	unsubscribe, done := t.unsubscribe, t.done
	t.unsubscribe, t.done = nil, nil
	t.mu.Unlock()

	if unsubscribe != nil {
		if err := unsubscribe(); err != nil {
			t.logger.Warn("Delivery handler unsubscribe failed", "error", err)
		}
	}
	if done != nil {
		close(done)
	}
}
