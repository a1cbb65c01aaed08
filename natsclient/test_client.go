//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a NATS server in a container plus a connected Client.
type TestClient struct {
	container testcontainers.Container
	Client    *Client
	URL       string
	cleanup   func()
}

type testConfig struct {
	jetstream    bool
	natsVersion  string
	timeout      time.Duration
	startTimeout time.Duration
}

// TestOption configures NewTestClient.
type TestOption func(*testConfig)

// WithJetStream enables JetStream, needed for KV buckets.
func WithJetStream() TestOption {
	return func(cfg *testConfig) {
		cfg.jetstream = true
	}
}

// WithNATSVersion specifies the NATS server image tag
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) {
		cfg.natsVersion = version
	}
}

// NewTestClient starts a NATS container and connects a Client to it. The
// container is terminated in t.Cleanup.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := &testConfig{
		natsVersion:  "2.11.7-alpine",
		timeout:      5 * time.Second,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()

	args := []string{"--port", "4222", "--http_port", "8222"}
	if cfg.jetstream {
		args = append(args, "--js")
	}

	req := testcontainers.ContainerRequest{
		Image:        "nats:" + cfg.natsVersion,
		ExposedPorts: []string{"4222/tcp", "8222/tcp"},
		Cmd:          args,
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4222/tcp"),
			wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(cfg.startTimeout),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	url := fmt.Sprintf("nats://%s:%s", host, port.Port())

	client, err := NewClient(url,
		WithTimeout(cfg.timeout),
		WithMaxReconnects(0),
		WithHealthInterval(0),
	)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to create NATS client: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to connect to NATS: %v", err)
	}

	tc := &TestClient{
		container: container,
		Client:    client,
		URL:       url,
		cleanup: func() {
			_ = client.Close(context.Background())
			_ = container.Terminate(context.Background())
		},
	}
	t.Cleanup(tc.Terminate)
	return tc
}

// Terminate closes the client and the container. t.Cleanup calls it too.
func (tc *TestClient) Terminate() {
	if tc.cleanup != nil {
		tc.cleanup()
		tc.cleanup = nil
	}
}

// NewClient connects an additional client to the same server.
func (tc *TestClient) NewClient(t testing.TB, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithMaxReconnects(0), WithHealthInterval(0)}, opts...)
	c, err := NewClient(tc.URL, opts...)
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}
