package client

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/actmeter/history"
	"github.com/c360/actmeter/metric"
)

// Defaults.
const (
	DefaultShutdownTimeout = 2 * time.Second
	DefaultCommandTimeout  = 2 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics exports ingestion and connection metrics to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithHistory uses an existing history manager instead of creating one.
func WithHistory(h *history.Manager) Option {
	return func(c *Client) {
		c.history = h
	}
}

// WithHistorySize sets the capacity of the history the client creates.
func WithHistorySize(n int) Option {
	return func(c *Client) {
		c.historySize = n
	}
}

// WithShutdownTimeout bounds each wait for the worker during Shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithCommandTimeout bounds each aggregator command.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.commandTimeout = d
		}
	}
}

// WithCommander sets where "end" and "clear" commands are sent.
func WithCommander(cmd Commander) Option {
	return func(c *Client) {
		c.commander = cmd
	}
}

// WithClearAggregator makes Clear also send "clear" to the aggregator.
func WithClearAggregator(enabled bool) Option {
	return func(c *Client) {
		c.clearAggregator = enabled
	}
}

// WithLocalPlayerName sets the source of the local player's name, which
// replaces the aggregator's "YOU" placeholder.
func WithLocalPlayerName(fn func() string) Option {
	return func(c *Client) {
		c.localPlayer = fn
	}
}

// WithClock sets the receipt clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMalformedLogLimit bounds how often malformed payloads are logged.
func WithMalformedLogLimit(every time.Duration, burst int) Option {
	return func(c *Client) {
		c.malformedLog = rate.NewLimiter(rate.Every(every), burst)
	}
}
