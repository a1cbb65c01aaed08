// Package metric owns the Prometheus registry shared by the meter's
// components.
//
// Components create their own collectors and register them through
// MetricsRegistrar under a component name, so the same metric cannot be
// registered twice by accident. Process-wide metrics (connection state,
// NATS link health) live in Metrics and are registered when the registry is
// created. Server exposes the registry over HTTP for scraping.
//
// Usage:
//
//	registry := metric.NewMetricsRegistry()
//	payloads := prometheus.NewCounter(prometheus.CounterOpts{
//		Namespace: "actmeter",
//		Subsystem: "client",
//		Name:      "payloads_received_total",
//		Help:      "Payloads received from the aggregator",
//	})
//	if err := registry.RegisterCounter("client", "payloads_received", payloads); err != nil {
//		return err
//	}
package metric
