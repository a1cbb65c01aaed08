package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/actmeter/metric"
)

// ringMetrics holds Prometheus metrics for ring operations.
type ringMetrics struct {
	writes      prometheus.Counter
	evictions   prometheus.Counter
	size        prometheus.Gauge
	utilization prometheus.Gauge
}

// newRingMetrics creates and registers ring metrics with the provided registry.
func newRingMetrics(registry *metric.MetricsRegistry, prefix string) (*ringMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &ringMetrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of items pushed",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of items evicted to respect capacity",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of items held",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "utilization",
			ConstLabels: labels,
			Help:        "Fill ratio (0.0 to 1.0)",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_evictions", m.evictions); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *ringMetrics) recordWrite() {
	m.writes.Inc()
}

func (m *ringMetrics) recordEvictions(n int) {
	m.evictions.Add(float64(n))
}

func (m *ringMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
