package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/errors"
)

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status                       Status
		healthy, degraded, unhealthy bool
	}{
		{NewHealthy("a", ""), true, false, false},
		{NewDegraded("a", ""), false, true, false},
		{NewUnhealthy("a", ""), false, false, true},
		{Status{}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.Status, func(t *testing.T) {
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.Equal(t, tt.degraded, tt.status.IsDegraded())
			assert.Equal(t, tt.unhealthy, tt.status.IsUnhealthy())
		})
	}
}

func TestAggregate(t *testing.T) {
	assert.True(t, Aggregate("sys", nil).IsHealthy())
	assert.True(t, Aggregate("sys", []Status{NewHealthy("a", ""), NewHealthy("b", "")}).IsHealthy())
	assert.True(t, Aggregate("sys", []Status{NewHealthy("a", ""), NewDegraded("b", "")}).IsDegraded())

	agg := Aggregate("sys", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")})
	assert.True(t, agg.IsUnhealthy())
	assert.Len(t, agg.SubStatuses, 2)
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"dial ws://127.0.0.1:10501/ws failed", "dial [URL] failed"},
		{"nats: dial nats://10.0.0.5:4222", "nats: dial [URL]"},
		{"open /etc/actmeter/config.yaml: denied", "open [PATH]: denied"},
		{"connect 192.168.1.20 refused", "connect [IP] refused"},
		{"auth failed token=abc123", "auth failed [REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeErrorMessage(tt.in))
		})
	}
}

// stubTransport fails every connect attempt.
type stubTransport struct{ err error }

func (s stubTransport) Name() string                               { return "stub" }
func (s stubTransport) Connect(context.Context, client.Sink) error { return s.err }
func (s stubTransport) Run(ctx context.Context, _ client.Sink) error {
	<-ctx.Done()
	return nil
}
func (s stubTransport) Close(context.Context) error { return nil }
func (s stubTransport) Abort()                      {}
func (s stubTransport) Reset() error                { return nil }

func TestFromClient(t *testing.T) {
	dialErr := errors.WrapTransient(errors.New("dial ws://127.0.0.1:10501/ws: connection refused"),
		"websocket", "Connect", "dial")
	c, err := client.New(stubTransport{err: dialErr})
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	idle := FromClient("meter", c)
	assert.True(t, idle.IsDegraded())
	assert.Equal(t, "not_connected", idle.Metrics.State)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return c.Status() == client.ConnectionFailed },
		time.Second, 5*time.Millisecond)

	failed := FromClient("meter", c)
	assert.True(t, failed.IsUnhealthy())
	assert.NotContains(t, failed.Message, "127.0.0.1")
	assert.Contains(t, failed.Message, "[URL]")
}

func TestMonitor_ServeHTTP(t *testing.T) {
	m := NewMonitor("actmeter")
	m.Update("archive", NewHealthy("", "ok"))

	healthy := true
	m.Register("client", func() Status {
		if healthy {
			return NewHealthy("", "connected")
		}
		return NewUnhealthy("", "failed")
	})
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get("client")
	require.True(t, ok)
	assert.Equal(t, "client", got.Component)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Healthy)
	require.Len(t, body.SubStatuses, 2)
	assert.Equal(t, "archive", body.SubStatuses[0].Component)
	assert.Equal(t, "client", body.SubStatuses[1].Component)

	healthy = false
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"unhealthy"`))

	m.Remove("client")
	assert.Equal(t, 1, m.Count())
}
