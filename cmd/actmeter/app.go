package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/c360/actmeter/archive"
	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/client/ipc"
	"github.com/c360/actmeter/client/websocket"
	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/config"
	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/health"
	"github.com/c360/actmeter/history"
	"github.com/c360/actmeter/metric"
	"github.com/c360/actmeter/natsclient"
	"github.com/c360/actmeter/pkg/tlsutil"
)

// app owns every long-lived part of the meter.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *metric.MetricsRegistry
	nats     *natsclient.Client
	history  *history.Manager
	archive  *archive.Archive
	client   *client.Client
	monitor  *health.Monitor
	server   *metric.Server
}

// newApp builds the meter from cfg. NATS is connected here when the IPC
// transport or the archive needs it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(appName),
	}

	if cfg.UsesNATS() {
		if err := a.connectNATS(ctx); err != nil {
			return nil, err
		}
	}

	if err := a.setupHistory(ctx); err != nil {
		a.closeNATS()
		return nil, err
	}

	if err := a.setupClient(); err != nil {
		a.closeNATS()
		return nil, err
	}

	if cfg.HTTP.Enabled {
		a.server = metric.NewServer(cfg.HTTP.Addr, cfg.HTTP.MetricsPath, a.registry)
		a.server.Handle(cfg.HTTP.HealthPath, a.monitor)
	}

	return a, nil
}

// connectNATS establishes NATS connection and waits for it to be ready
func (a *app) connectNATS(ctx context.Context) error {
	n := a.cfg.NATS
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(a.logger),
		natsclient.WithMetrics(a.registry),
		natsclient.WithName(n.Name),
		natsclient.WithMaxReconnects(n.MaxReconnects),
		natsclient.WithReconnectWait(n.ReconnectWait.Std()),
		natsclient.WithTimeout(n.Timeout.Std()),
		natsclient.WithDrainTimeout(n.DrainTimeout.Std()),
	}
	tlsConfig, err := tlsutil.LoadClientTLSConfig(n.TLS)
	if err != nil {
		return fmt.Errorf("load NATS TLS: %w", err)
	}
	opts = append(opts, natsclient.WithTLSConfig(tlsConfig))

	switch {
	case n.Token != "":
		opts = append(opts, natsclient.WithToken(n.Token))
	case n.Username != "":
		opts = append(opts, natsclient.WithCredentials(n.Username, n.Password))
	}

	nc, err := natsclient.NewClient(n.URL(), opts...)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	a.logger.Info("Connecting to NATS", "url", nc.URL())
	if err := nc.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := nc.WaitForConnection(connCtx); err != nil {
		_ = nc.Close(context.Background())
		return fmt.Errorf("NATS connection timeout: %w", err)
	}

	a.nats = nc
	a.monitor.Register("nats", func() health.Status {
		if nc.IsHealthy() {
			return health.NewHealthy("nats", "Connected")
		}
		return health.NewDegraded("nats", "NATS "+nc.Status().String())
	})
	return nil
}

// setupHistory creates the history and, when enabled, the archive behind
// it, restoring archived encounters first.
func (a *app) setupHistory(ctx context.Context) error {
	opts := []history.Option{
		history.WithLogger(a.logger),
		history.WithMetrics(a.registry),
	}

	if a.cfg.Archive.Enabled {
		kv, err := a.nats.KeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      a.cfg.Archive.Bucket,
			Description: "archived combat encounters",
		})
		if err != nil {
			return fmt.Errorf("open archive bucket: %w", err)
		}

		arch, err := archive.New(a.nats.NewKVStore(kv), a.cfg.Archive.MaxSize,
			archive.WithLogger(a.logger), archive.WithMetrics(a.registry))
		if err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
		a.archive = arch
		opts = append(opts, history.WithArchiveHook(arch.Enqueue), history.WithClearHook(arch.EnqueueClear))
	}

	h, err := history.NewManager(a.cfg.History.MaxSize, opts...)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	a.history = h

	if a.archive != nil && a.cfg.Archive.Restore {
		events, err := a.archive.Load(ctx)
		if err != nil {
			a.logger.Warn("Archive not restored", "error", err)
			return nil
		}
		a.logger.Info("Restored archived encounters", "count", h.Restore(events))
	}
	return nil
}

func (a *app) setupClient() error {
	transport, err := a.buildTransport()
	if err != nil {
		return err
	}

	cc := a.cfg.Client
	opts := []client.Option{
		client.WithLogger(a.logger),
		client.WithMetrics(a.registry),
		client.WithHistory(a.history),
		client.WithShutdownTimeout(cc.ShutdownTimeout.Std()),
		client.WithCommandTimeout(cc.CommandTimeout.Std()),
		client.WithClearAggregator(cc.ClearAggregator),
	}
	if cc.PlayerName != "" {
		name := cc.PlayerName
		opts = append(opts, client.WithLocalPlayerName(func() string { return name }))
	}
	if a.nats != nil {
		opts = append(opts, client.WithCommander(ipc.NewCommander(a.nats, a.cfg.IPC.Prefix)))
	}

	c, err := client.New(transport, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.client = c
	a.monitor.Register("client", func() health.Status { return health.FromClient("client", c) })
	return nil
}

func (a *app) buildTransport() (client.Transport, error) {
	switch a.cfg.Transport {
	case config.TransportIPC:
		return ipc.New(a.nats, a.cfg.IPC.Transport(), ipc.WithLogger(a.logger))
	default:
		tlsConfig, err := tlsutil.LoadClientTLSConfig(a.cfg.WebSocket.TLS)
		if err != nil {
			return nil, fmt.Errorf("load websocket TLS: %w", err)
		}
		return websocket.New(a.cfg.WebSocket.Transport(),
			websocket.WithLogger(a.logger), websocket.WithTLSConfig(tlsConfig))
	}
}

// Run starts every part and blocks until ctx ends or a part fails. stdin
// may be nil to disable console commands.
func (a *app) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if a.archive != nil {
		if err := a.archive.Start(ctx); err != nil {
			return fmt.Errorf("start archive: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(a.server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
		a.logger.Info("Serving metrics and health", "addr", a.cfg.HTTP.Addr,
			"metrics", a.cfg.HTTP.MetricsPath, "health", a.cfg.HTTP.HealthPath)
	}

	if a.cfg.Reconnect.Enabled {
		supervisor := client.NewSupervisor(a.client, a.cfg.Reconnect.Retry(),
			client.WithSupervisorLogger(a.logger), client.WithSupervisorMetrics(a.registry))
		g.Go(func() error { return supervisor.Run(gctx) })
	} else if err := a.client.Start(); err != nil {
		return err
	}

	if a.cfg.Render.Enabled {
		r := newRenderer(a.cfg.Render)
		g.Go(func() error {
			return r.Run(gctx, func() *combat.Event { return a.client.GetEvent(-1) }, stdout)
		})
	}

	if stdin != nil {
		con := &console{meter: clientMeter{a.client}, out: stdout, logger: a.logger}
		g.Go(func() error { return con.Run(gctx, stdin) })
	}

	a.logger.Info("Meter started", "transport", a.client.Name())
	return g.Wait()
}

// Shutdown stops the client, flushes the archive and closes NATS, each step
// bounded by what remains of timeout.
func (a *app) Shutdown(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	a.client.Shutdown()
	a.client.WaitCommands()

	var errs []error
	if a.archive != nil {
		if err := a.archive.Stop(time.Until(deadline)); err != nil {
			errs = append(errs, fmt.Errorf("stop archive: %w", err))
		}
	}
	if a.nats != nil {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()
		if err := a.nats.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close NATS: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (a *app) closeNATS() {
	if a.nats != nil {
		_ = a.nats.Close(context.Background())
	}
}
