package ipc

import (
	"strings"
	"time"

	"github.com/c360/actmeter/errors"
)

// Defaults.
const (
	DefaultPrefix         = "act"
	DefaultDeliveryPrefix = "actmeter.deliver"
	DefaultNamePrefix     = "actmeter"
	DefaultRequestTimeout = 2 * time.Second
)

// Config holds the IPC transport configuration.
type Config struct {
	// Prefix of the aggregator plugin's subjects.
	Prefix string
	// DeliveryPrefix of the subject payloads are pushed to; the subscriber
	// name is appended.
	DeliveryPrefix string
	// NamePrefix of generated subscriber names.
	NamePrefix string
	// RequestTimeout bounds each handshake request.
	RequestTimeout time.Duration
}

// DefaultConfig returns the configuration for the stock plugin.
func DefaultConfig() Config {
	return Config{
		Prefix:         DefaultPrefix,
		DeliveryPrefix: DefaultDeliveryPrefix,
		NamePrefix:     DefaultNamePrefix,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, subject := range []string{c.Prefix, c.DeliveryPrefix, c.NamePrefix} {
		if subject == "" || strings.ContainsAny(subject, " \t*>") ||
			strings.HasPrefix(subject, ".") || strings.HasSuffix(subject, ".") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "ipc", "Validate", "check subject "+subject)
		}
	}
	if c.RequestTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ipc", "Validate", "check request timeout")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.DeliveryPrefix == "" {
		c.DeliveryPrefix = DefaultDeliveryPrefix
	}
	if c.NamePrefix == "" {
		c.NamePrefix = DefaultNamePrefix
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

func (c Config) listeningSubject() string { return c.Prefix + ".listening" }
func (c Config) createSubject() string    { return c.Prefix + ".subscriber.create" }
func (c Config) removeSubject() string    { return c.Prefix + ".subscriber.remove" }
func (c Config) commandSubject() string   { return c.Prefix + ".command" }

func (c Config) filterSubject(name string) string {
	return c.Prefix + ".subscriber." + name + ".filter"
}

func (c Config) deliverySubject(name string) string {
	return c.DeliveryPrefix + "." + name
}
