package natsclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
)

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusClosed, "closed"},
		{ConnectionStatus(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:4222",
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithTimeout(750*time.Millisecond),
		WithName("meter-test"),
		WithToken("secret"),
		WithMetrics(metric.NewMetricsRegistry()),
	)
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, 750*time.Millisecond, c.timeout)
	assert.Equal(t, "meter-test", c.clientName)
	assert.NotNil(t, c.metrics)
}

func TestClient_OperationsRequireConnection(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)
	ctx := context.Background()

	err = c.Publish(ctx, "act.command", []byte("end"))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, errors.IsTransient(err))

	_, err = c.Request(ctx, "act.listening", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Handle("act.deliver.x", func([]byte) []byte { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewClient("nats://"+addr, WithTimeout(200*time.Millisecond), WithMaxReconnects(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClient_CloseIdempotent(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:4222")
	require.NoError(t, err)

	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, errors.IsFatal(err))
}

func TestIsKVNotFoundError(t *testing.T) {
	assert.False(t, IsKVNotFoundError(nil))
	assert.True(t, IsKVNotFoundError(ErrKVKeyNotFound))
	assert.True(t, IsKVNotFoundError(errors.New("nats: key not found")))
	assert.False(t, IsKVNotFoundError(errors.New("nats: timeout")))
}
