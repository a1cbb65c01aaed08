package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/actmeter/metric"
)

// Drop reasons for the payloads_dropped metric.
const (
	dropEmpty      = "empty"
	dropMalformed  = "malformed"
	dropIncomplete = "incomplete"
	dropDuplicate  = "duplicate"
)

// Metrics holds Prometheus metrics for the ingestion path.
type Metrics struct {
	payloadsReceived   prometheus.Counter
	payloadsDropped    *prometheus.CounterVec
	eventsAccepted     prometheus.Counter
	encountersArchived prometheus.Counter
	ingestDuration     prometheus.Histogram
}

// newMetrics creates and registers client metrics. A nil registry yields nil.
func newMetrics(registry *metric.MetricsRegistry, transport string) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"transport": transport}
	m := &Metrics{
		payloadsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "client",
			Name:        "payloads_received_total",
			ConstLabels: labels,
			Help:        "Payloads received from the aggregator",
		}),
		payloadsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "client",
			Name:        "payloads_dropped_total",
			ConstLabels: labels,
			Help:        "Payloads not kept, by reason",
		}, []string{"reason"}),
		eventsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "client",
			Name:        "events_accepted_total",
			ConstLabels: labels,
			Help:        "Events that became the current event",
		}),
		encountersArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "client",
			Name:        "encounters_archived_total",
			ConstLabels: labels,
			Help:        "Completed encounters appended to the history",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "client",
			Name:        "ingest_duration_seconds",
			ConstLabels: labels,
			Help:        "Time to decode and apply one payload",
			Buckets:     []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	if err := registry.RegisterCounter("client", "payloads_received", m.payloadsReceived); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("client", "payloads_dropped", m.payloadsDropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("client", "events_accepted", m.eventsAccepted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("client", "encounters_archived", m.encountersArchived); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("client", "ingest_duration", m.ingestDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) received() {
	if m != nil {
		m.payloadsReceived.Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.payloadsDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) accepted(archived bool) {
	if m == nil {
		return
	}
	m.eventsAccepted.Inc()
	if archived {
		m.encountersArchived.Inc()
	}
}

func (m *Metrics) observe(d time.Duration) {
	if m != nil {
		m.ingestDuration.Observe(d.Seconds())
	}
}
