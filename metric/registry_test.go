package metric

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/errors"
)

func gathered(t *testing.T, r *MetricsRegistry, name string) bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	require.NoError(t, registry.RegisterCounter("client", "test_counter", counter))
	counter.Inc()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	require.NoError(t, registry.RegisterGauge("client", "test_gauge", gauge))
	gauge.Set(42)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_vec", Help: "A test vec"}, []string{"reason"})
	require.NoError(t, registry.RegisterCounterVec("client", "test_vec", vec))
	vec.WithLabelValues("empty").Inc()

	assert.True(t, gathered(t, registry, "test_counter"))
	assert.True(t, gathered(t, registry, "test_gauge"))
	assert.True(t, gathered(t, registry, "test_vec"))
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})

	require.NoError(t, registry.RegisterCounter("client", "dup", first))

	err := registry.RegisterCounter("client", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = registry.RegisterCounter("other", "dup", second)
	require.Error(t, err, "prometheus rejects the same fully-qualified name")
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "gone", Help: "gone"})
	require.NoError(t, registry.RegisterGauge("history", "gone", gauge))

	assert.True(t, registry.Unregister("history", "gone"))
	assert.False(t, registry.Unregister("history", "gone"))
	assert.False(t, gathered(t, registry, "gone"))

	require.NoError(t, registry.RegisterGauge("history", "gone", gauge), "name is free again")
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_%d", i)
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
			assert.NoError(t, registry.RegisterCounter("client", name, c))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.True(t, gathered(t, registry, fmt.Sprintf("concurrent_%d", i)))
	}
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordConnectionStatus("websocket", 2)
	core.RecordReconnectAttempt("websocket")
	core.RecordError("client", "transient")
	core.RecordNATSStatus(true)
	core.RecordNATSRTT(3 * time.Millisecond)
	core.RecordNATSReconnect()

	assert.True(t, gathered(t, registry, "actmeter_client_connection_status"))
	assert.True(t, gathered(t, registry, "actmeter_client_reconnect_attempts_total"))
	assert.True(t, gathered(t, registry, "actmeter_nats_connected"))
	assert.True(t, gathered(t, registry, "go_goroutines"))
}

func TestMetricsRegistry_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordConnectionStatus("ipc", 4)

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `actmeter_client_connection_status{transport="ipc"} 4`)
}

func TestServer_StartShutdown(t *testing.T) {
	registry := NewMetricsRegistry()
	server := NewServer("127.0.0.1:0", "", registry)
	server.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "OK")
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	require.Eventually(t, func() bool {
		return !strings.HasSuffix(server.Addr(), ":0")
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
