// Package client maintains the connection to the aggregator and feeds every
// received payload into the event history.
//
// A Client is transport-agnostic: it runs the connection state machine,
// owns the worker goroutine and the history, and delegates the wire work to
// a Transport (see the websocket and ipc subpackages). Start is
// asynchronous; Shutdown and Reset are synchronous with bounded waits.
package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/history"
	"github.com/c360/actmeter/metric"
)

// Client is the connection to one aggregator.
type Client struct {
	transport Transport
	history   *history.Manager
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	metrics   *Metrics

	historySize     int
	shutdownTimeout time.Duration
	commandTimeout  time.Duration
	commander       Commander
	clearAggregator bool
	localPlayer     func() string
	now             func() time.Time
	malformedLog    *rate.Limiter

	// lifecycleMu serializes Start, Shutdown and Reset.
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}

	status  atomic.Int32
	changes chan struct{}

	errMu   sync.RWMutex
	lastErr error

	commands sync.WaitGroup
}

// New creates a client over transport. It starts NotConnected.
func New(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "client", "New", "check transport")
	}

	c := &Client{
		transport:       transport,
		logger:          slog.Default(),
		historySize:     history.DefaultMaxSize,
		shutdownTimeout: DefaultShutdownTimeout,
		commandTimeout:  DefaultCommandTimeout,
		now:             time.Now,
		malformedLog:    rate.NewLimiter(rate.Every(10*time.Second), 3),
		changes:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client", "transport", transport.Name())

	metrics, err := newMetrics(c.registry, transport.Name())
	if err != nil {
		return nil, errors.WrapTransient(err, "client", "New", "metrics registration")
	}
	c.metrics = metrics

	if c.history == nil {
		hopts := []history.Option{history.WithLogger(c.logger)}
		if c.registry != nil {
			hopts = append(hopts, history.WithMetrics(c.registry))
		}
		h, err := history.NewManager(c.historySize, hopts...)
		if err != nil {
			return nil, errors.WrapTransient(err, "client", "New", "create history")
		}
		c.history = h
	}

	c.recordStatus(NotConnected)
	return c, nil
}

// Name returns the transport name.
func (c *Client) Name() string {
	return c.transport.Name()
}

// Status returns the connection state.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// StatusChanges signals after status transitions. Signals coalesce; read
// Status for the current value. It is meant for a single consumer.
func (c *Client) StatusChanges() <-chan struct{} {
	return c.changes
}

// LastError returns the error behind the most recent ConnectionFailed or
// lost session.
func (c *Client) LastError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastErr
}

// History returns the event history.
func (c *Client) History() *history.Manager {
	return c.history
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
	c.statusChanged(s)
}

func (c *Client) casStatus(from, to Status) bool {
	if !c.status.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.statusChanged(to)
	return true
}

func (c *Client) statusChanged(s Status) {
	c.recordStatus(s)
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Client) recordStatus(s Status) {
	if c.registry != nil {
		c.registry.CoreMetrics().RecordConnectionStatus(c.transport.Name(), int(s))
	}
}

func (c *Client) setLastError(err error) {
	c.storeLastError(err)
	c.recordError(err)
}

func (c *Client) storeLastError(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

func (c *Client) recordError(err error) {
	if c.registry != nil && err != nil {
		c.registry.CoreMetrics().RecordError("client", errors.Classify(err).String())
	}
}

// Start begins connecting in the background. It is rejected with
// ErrAlreadyStarted, and nothing changes, unless the client is
// NotConnected.
func (c *Client) Start() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if s := c.Status(); s != NotConnected {
		c.logger.Warn("Start rejected", "status", s.String())
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "client", "Start", "check status "+s.String())
	}

	c.setLastError(nil)
	c.setStatus(Connecting)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(ctx, cancel, done)
	return nil
}

// run is the session worker.
func (c *Client) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	c.logger.Info("Connecting to aggregator")
	if err := c.connect(ctx); err != nil {
		c.connectFailed(err, ctx.Err() != nil)
		cancel()
		return
	}

	if !c.casStatus(Connecting, Connected) {
		// Shutdown raced the handshake.
		return
	}
	c.logger.Info("Connected to aggregator")

	err := c.transport.Run(ctx, c)
	if ctx.Err() == nil && err != nil {
		err = errors.WrapTransient(err, "client", "run", "receive")
	}

	// The remote ended the session or the link broke without a local
	// Shutdown: tear down here.
	if !c.casStatus(Connected, ShuttingDown) {
		return
	}
	if err != nil {
		c.logger.Warn("Connection lost", "error", err)
	} else {
		c.logger.Info("Aggregator ended the session")
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	bestEffort(c.logger, "close transport", func() error { return c.transport.Close(closeCtx) })
	closeCancel()
	cancel()

	if err != nil {
		c.setLastError(err)
		c.setStatus(ConnectionFailed)
		return
	}
	c.setStatus(NotConnected)
}

// connectFailed settles a failed handshake. A handshake cancelled by
// Shutdown is not a failure and leaves no error behind.
func (c *Client) connectFailed(err error, cancelled bool) {
	if cancelled {
		return
	}
	// The error is published before the status so observers of
	// ConnectionFailed always see it.
	c.storeLastError(err)
	if !c.casStatus(Connecting, ConnectionFailed) {
		// Shutdown won the race.
		c.storeLastError(nil)
		return
	}
	c.recordError(err)
	c.logger.Error("Connection failed", "error", err)
}

// connect runs the transport handshake, converting panics into errors so a
// misbehaving transport cannot take the host down.
func (c *Client) connect(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("transport panicked: %v", r), "client", "connect", "handshake")
		}
	}()
	return c.transport.Connect(ctx, c)
}

// Shutdown ends the session: graceful close first, then cancellation and
// abort if the worker does not finish in time. It is idempotent. From
// ConnectionFailed it releases resources but keeps the failed state; use
// Reset to leave it.
func (c *Client) Shutdown() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.shutdownLocked()
}

func (c *Client) shutdownLocked() {
	switch s := c.Status(); s {
	case NotConnected, ConnectionFailed:
		c.stopWorker()
		return
	case Connecting:
		c.setStatus(ShuttingDown)
		// Nothing to close gracefully yet; stop the handshake now.
		if c.cancel != nil {
			c.cancel()
		}
	case Connected:
		c.setStatus(ShuttingDown)
	case ShuttingDown:
		// The worker is tearing down a session the remote ended.
	}

	c.logger.Info("Shutting down connection")
	c.stopWorker()

	// The worker may have settled on ConnectionFailed; a requested
	// shutdown always ends NotConnected.
	c.setStatus(NotConnected)
}

// stopWorker closes the transport and waits, bounded, for the worker.
func (c *Client) stopWorker() {
	if c.done == nil {
		return
	}
	done, cancel := c.done, c.cancel
	c.done, c.cancel = nil, nil

	select {
	case <-done:
		cancel()
		return
	default:
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	bestEffort(c.logger, "close transport", func() error { return c.transport.Close(closeCtx) })
	closeCancel()

	if waitDone(done, c.shutdownTimeout) {
		cancel()
		return
	}

	c.logger.Warn("Graceful close timed out, aborting", "timeout", c.shutdownTimeout)
	cancel()
	bestEffort(c.logger, "abort transport", func() error {
		c.transport.Abort()
		return nil
	})

	if !waitDone(done, c.shutdownTimeout) {
		c.logger.Error("Worker did not exit after abort", "timeout", c.shutdownTimeout)
	}
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Reset shuts down, discards the transport's session state and leaves the
// client NotConnected, ready for Start. It is the only way out of
// ConnectionFailed.
func (c *Client) Reset() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.shutdownLocked()

	var resetErr error
	bestEffort(c.logger, "reset transport", func() error {
		resetErr = c.transport.Reset()
		return nil
	})
	if resetErr != nil {
		err := errors.WrapFatal(resetErr, "client", "Reset", "reset transport")
		c.setLastError(err)
		c.setStatus(ConnectionFailed)
		c.logger.Error("Reset failed", "error", err)
		return err
	}

	c.setStatus(NotConnected)
	c.logger.Info("Connection reset")
	return nil
}

// Clear drops the current, last and archived events. With
// WithClearAggregator it also asks the aggregator to clear its state.
func (c *Client) Clear() {
	c.history.Clear()
	if c.clearAggregator {
		c.sendCommand(CommandClear)
	}
}

// EndEncounter asks the aggregator to end the current encounter.
func (c *Client) EndEncounter() {
	c.sendCommand(CommandEnd)
}

// sendCommand fires command in the background; failures are logged only.
func (c *Client) sendCommand(command string) {
	if c.commander == nil {
		c.logger.Debug("No command channel configured", "command", command)
		return
	}

	c.commands.Add(1)
	go func() {
		defer c.commands.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout)
		defer cancel()
		if err := c.commander.SendCommand(ctx, command); err != nil {
			c.logger.Warn("Aggregator command failed", "command", command, "error", err)
			return
		}
		c.logger.Debug("Aggregator command sent", "command", command)
	}()
}

// WaitCommands waits for in-flight aggregator commands.
func (c *Client) WaitCommands() {
	c.commands.Wait()
}

// GetEvent returns the current event for a negative index, otherwise the
// archived event at index (0 is the oldest). Out of range yields nil.
func (c *Client) GetEvent(index int) *combat.Event {
	if index < 0 {
		return c.history.Current()
	}
	return c.history.At(index)
}

// Active implements Sink.
func (c *Client) Active() bool {
	return c.Status() == Connected
}

// accepting reports whether deliveries are still wanted.
func (c *Client) accepting() bool {
	s := c.Status()
	return s == Connecting || s == Connected
}

// Ingest implements Sink. It decodes payload and offers it to the history.
// Failures never escape: a bad payload is counted, logged (rate limited)
// and dropped.
func (c *Client) Ingest(payload []byte) bool {
	received := c.now()
	c.metrics.received()
	start := time.Now()
	defer func() { c.metrics.observe(time.Since(start)) }()

	if len(bytes.TrimSpace(payload)) == 0 {
		c.metrics.dropped(dropEmpty)
		return c.accepting()
	}

	ev, err := combat.Decode(payload, received)
	if err != nil {
		c.metrics.dropped(dropMalformed)
		if c.malformedLog.Allow() {
			c.logger.Warn("Dropping malformed payload", "error", err, "bytes", len(payload))
		}
		return c.accepting()
	}

	if c.localPlayer != nil {
		ev.ApplyLocalPlayerName(c.localPlayer())
	}

	switch outcome := c.history.Offer(ev); outcome {
	case history.OutcomeIncomplete:
		c.metrics.dropped(dropIncomplete)
	case history.OutcomeDuplicate:
		c.metrics.dropped(dropDuplicate)
	case history.OutcomeArchived:
		c.metrics.accepted(true)
		c.logger.Info("Encounter archived",
			"title", ev.Encounter.Title, "duration", ev.Encounter.Duration(), "combatants", len(ev.Combatants))
	default:
		c.metrics.accepted(false)
	}
	return c.accepting()
}
