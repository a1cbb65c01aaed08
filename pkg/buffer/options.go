package buffer

import (
	"github.com/c360/actmeter/metric"
)

// Option configures a Ring.
type Option[T any] func(*ringOptions[T])

// EvictCallback receives an item removed to make room, by Resize or by
// Clear.
type EvictCallback[T any] func(item T)

type ringOptions[T any] struct {
	evictCallback EvictCallback[T]

	// metricsReg is optional; when set the statistics are also exported
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string
}

// WithMetrics enables Prometheus export of the ring statistics. A nil
// registry or empty prefix is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *ringOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictCallback sets a function called for every evicted item.
func WithEvictCallback[T any](callback EvictCallback[T]) Option[T] {
	return func(opts *ringOptions[T]) {
		opts.evictCallback = callback
	}
}

func applyOptions[T any](options ...Option[T]) *ringOptions[T] {
	opts := &ringOptions[T]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
