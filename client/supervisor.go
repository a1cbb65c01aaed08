package client

import (
	"context"
	"log/slog"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
	"github.com/c360/actmeter/pkg/retry"
)

// Supervisor keeps a client connected: whenever the session ends or fails
// it waits out a backoff delay, resets a failed client and starts it again.
type Supervisor struct {
	client   *Client
	cfg      retry.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the logger. Nil keeps slog.Default().
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSupervisorMetrics counts reconnect attempts in registry.
func WithSupervisorMetrics(registry *metric.MetricsRegistry) SupervisorOption {
	return func(s *Supervisor) {
		s.registry = registry
	}
}

// NewSupervisor creates a supervisor for c using the backoff schedule cfg.
func NewSupervisor(c *Client, cfg retry.Config, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{client: c, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "supervisor", "transport", c.Name())
	return s
}

// Run supervises until ctx ends. It consumes the client's StatusChanges.
// It does not shut the client down on return. A fatal Reset error ends Run.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := retry.NewBackoff(s.cfg)
	first := true

	for {
		switch status := s.client.Status(); status {
		case NotConnected, ConnectionFailed:
			if !first {
				delay := backoff.Next()
				s.logger.Info("Reconnecting", "status", status.String(), "delay", delay, "last_error", s.client.LastError())
				if err := retry.Sleep(ctx, delay); err != nil {
					return nil
				}
				if s.registry != nil {
					s.registry.CoreMetrics().RecordReconnectAttempt(s.client.Name())
				}
			}
			first = false

			if s.client.Status() == ConnectionFailed {
				if err := s.client.Reset(); err != nil {
					if errors.IsFatal(err) {
						return err
					}
					continue
				}
			}
			if err := s.client.Start(); err != nil {
				s.logger.Debug("Start skipped", "error", err)
			}

		case Connected:
			backoff.Reset()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.client.StatusChanges():
		}
	}
}
