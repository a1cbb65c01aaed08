package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the process-wide metrics. Per-component counters are
// registered by the components themselves.
type Metrics struct {
	ConnectionStatus  *prometheus.GaugeVec
	ReconnectAttempts *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the process-wide metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "client",
				Name:      "connection_status",
				Help:      "Connection status (0=not connected, 1=connecting, 2=connected, 3=shutting down, 4=failed)",
			},
			[]string{"transport"},
		),

		ReconnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "client",
				Name:      "reconnect_attempts_total",
				Help:      "Reconnect attempts made by the supervisor",
			},
			[]string{"transport"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ConnectionStatus,
		m.ReconnectAttempts,
		m.ErrorsTotal,
		m.NATSConnected,
		m.NATSRTT,
		m.NATSReconnects,
	}
}

// RecordConnectionStatus sets the connection state gauge for a transport.
func (m *Metrics) RecordConnectionStatus(transport string, status int) {
	m.ConnectionStatus.WithLabelValues(transport).Set(float64(status))
}

// RecordReconnectAttempt counts one supervisor reconnect.
func (m *Metrics) RecordReconnectAttempt(transport string) {
	m.ReconnectAttempts.WithLabelValues(transport).Inc()
}

// RecordError counts an error by component and class.
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (m *Metrics) RecordNATSRTT(rtt time.Duration) {
	m.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
