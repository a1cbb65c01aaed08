package websocket

import (
	"net/http"
	"net/url"
	"time"

	"github.com/c360/actmeter/errors"
)

// DefaultURL is the aggregator's default websocket endpoint.
const DefaultURL = "ws://127.0.0.1:10501/ws"

// Defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = 2 * time.Second
	DefaultReadLimit        = 16 << 20
)

// Config holds the websocket transport configuration.
type Config struct {
	// URL of the aggregator endpoint (ws:// or wss://).
	URL string
	// HandshakeTimeout bounds the opening handshake and the subscribe write.
	HandshakeTimeout time.Duration
	// CloseTimeout bounds writing the close frame when no deadline is given.
	CloseTimeout time.Duration
	// ReadLimit is the largest message accepted, in bytes.
	ReadLimit int64
	// Header is sent with the opening handshake.
	Header http.Header
}

// DefaultConfig returns the configuration for a local aggregator.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		HandshakeTimeout: DefaultHandshakeTimeout,
		CloseTimeout:     DefaultCloseTimeout,
		ReadLimit:        DefaultReadLimit,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.WrapInvalid(err, "websocket", "Validate", "parse url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "websocket", "Validate", "check url scheme "+u.Scheme)
	}
	if u.Host == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "websocket", "Validate", "check url host")
	}
	if c.HandshakeTimeout < 0 || c.CloseTimeout < 0 || c.ReadLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "websocket", "Validate", "check limits")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.ReadLimit == 0 {
		c.ReadLimit = DefaultReadLimit
	}
	return c
}
