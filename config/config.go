package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/client/ipc"
	"github.com/c360/actmeter/client/websocket"
	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/history"
	"github.com/c360/actmeter/pkg/retry"
	"github.com/c360/actmeter/pkg/tlsutil"
)

// Transport names
const (
	TransportWebSocket = "websocket"
	TransportIPC       = "ipc"
)

// Config represents the complete application configuration
type Config struct {
	Transport string          `json:"transport" yaml:"transport"` // websocket or ipc
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket"`
	IPC       IPCConfig       `json:"ipc" yaml:"ipc"`
	NATS      NATSConfig      `json:"nats" yaml:"nats"`
	History   HistoryConfig   `json:"history" yaml:"history"`
	Client    ClientConfig    `json:"client" yaml:"client"`
	Reconnect ReconnectConfig `json:"reconnect" yaml:"reconnect"`
	Render    RenderConfig    `json:"render" yaml:"render"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

// WebSocketConfig configures the websocket transport.
type WebSocketConfig struct {
	URL              string   `json:"url" yaml:"url"`
	HandshakeTimeout Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	CloseTimeout     Duration `json:"close_timeout" yaml:"close_timeout"`
	ReadLimit        int64    `json:"read_limit" yaml:"read_limit"`

	TLS tlsutil.ClientConfig `json:"tls" yaml:"tls"`
}

// Transport converts to the transport's own configuration.
func (w WebSocketConfig) Transport() websocket.Config {
	return websocket.Config{
		URL:              w.URL,
		HandshakeTimeout: w.HandshakeTimeout.Std(),
		CloseTimeout:     w.CloseTimeout.Std(),
		ReadLimit:        w.ReadLimit,
	}
}

// IPCConfig configures the IPC transport. It rides on the NATS connection.
type IPCConfig struct {
	Prefix         string   `json:"prefix" yaml:"prefix"`
	DeliveryPrefix string   `json:"delivery_prefix" yaml:"delivery_prefix"`
	NamePrefix     string   `json:"name_prefix" yaml:"name_prefix"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Transport converts to the transport's own configuration.
func (i IPCConfig) Transport() ipc.Config {
	return ipc.Config{
		Prefix:         i.Prefix,
		DeliveryPrefix: i.DeliveryPrefix,
		NamePrefix:     i.NamePrefix,
		RequestTimeout: i.RequestTimeout.Std(),
	}
}

// NATSConfig configures the NATS connection used by the IPC transport and
// the archive.
type NATSConfig struct {
	URLs          []string `json:"urls" yaml:"urls"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Username      string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string   `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty"`
	MaxReconnects int      `json:"max_reconnects" yaml:"max_reconnects"` // -1 for unlimited
	ReconnectWait Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	Timeout       Duration `json:"timeout" yaml:"timeout"`
	DrainTimeout  Duration `json:"drain_timeout" yaml:"drain_timeout"`

	TLS tlsutil.ClientConfig `json:"tls" yaml:"tls"`
}

// URL joins the server list the way nats.Connect expects.
func (n NATSConfig) URL() string {
	return strings.Join(n.URLs, ",")
}

// HistoryConfig bounds the archived encounter list.
type HistoryConfig struct {
	MaxSize int `json:"max_size" yaml:"max_size"`
}

// ClientConfig configures the connection client.
type ClientConfig struct {
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	CommandTimeout  Duration `json:"command_timeout" yaml:"command_timeout"`
	// ClearAggregator forwards Clear to the aggregator as well.
	ClearAggregator bool `json:"clear_aggregator" yaml:"clear_aggregator"`
	// PlayerName replaces the "YOU" sentinel; empty keeps it.
	PlayerName string `json:"player_name,omitempty" yaml:"player_name,omitempty"`
}

// ReconnectConfig controls the reconnect supervisor.
type ReconnectConfig struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	InitialDelay Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay     Duration `json:"max_delay" yaml:"max_delay"`
	Multiplier   float64  `json:"multiplier" yaml:"multiplier"`
	Jitter       bool     `json:"jitter" yaml:"jitter"`
}

// Retry converts to a retry configuration with unlimited attempts.
func (r ReconnectConfig) Retry() retry.Config {
	return retry.Config{
		MaxAttempts:  -1,
		InitialDelay: r.InitialDelay.Std(),
		MaxDelay:     r.MaxDelay.Std(),
		Multiplier:   r.Multiplier,
		AddJitter:    r.Jitter,
	}
}

// RenderConfig controls the text output of the headless meter.
type RenderConfig struct {
	Enabled         bool     `json:"enabled" yaml:"enabled"`
	Interval        Duration `json:"interval" yaml:"interval"`
	EncounterFormat string   `json:"encounter_format" yaml:"encounter_format"`
	CombatantFormat string   `json:"combatant_format" yaml:"combatant_format"`
	SortBy          string   `json:"sort_by" yaml:"sort_by"`
	TopN            int      `json:"top_n" yaml:"top_n"` // 0 shows everyone
	Grouping        bool     `json:"grouping" yaml:"grouping"`
	BlankIfZero     bool     `json:"blank_if_zero" yaml:"blank_if_zero"`
}

// ArchiveConfig controls the JetStream encounter archive.
type ArchiveConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Bucket  string `json:"bucket" yaml:"bucket"`
	MaxSize int    `json:"max_size" yaml:"max_size"`
	// Restore seeds the history from the archive at startup.
	Restore bool `json:"restore" yaml:"restore"`
}

// HTTPConfig controls the metrics and health endpoint.
type HTTPConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Addr        string `json:"addr" yaml:"addr"`
	MetricsPath string `json:"metrics_path" yaml:"metrics_path"`
	HealthPath  string `json:"health_path" yaml:"health_path"`
}

// Default returns the configuration used when nothing is overridden: the
// websocket transport against a local aggregator.
func Default() *Config {
	ws := websocket.DefaultConfig()
	ipcCfg := ipc.DefaultConfig()
	rc := retry.Reconnect()

	return &Config{
		Transport: TransportWebSocket,
		WebSocket: WebSocketConfig{
			URL:              ws.URL,
			HandshakeTimeout: Duration(ws.HandshakeTimeout),
			CloseTimeout:     Duration(ws.CloseTimeout),
			ReadLimit:        ws.ReadLimit,
		},
		IPC: IPCConfig{
			Prefix:         ipcCfg.Prefix,
			DeliveryPrefix: ipcCfg.DeliveryPrefix,
			NamePrefix:     ipcCfg.NamePrefix,
			RequestTimeout: Duration(ipcCfg.RequestTimeout),
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://127.0.0.1:4222"},
			Name:          "actmeter",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
			Timeout:       Duration(5 * time.Second),
			DrainTimeout:  Duration(5 * time.Second),
		},
		History: HistoryConfig{MaxSize: history.DefaultMaxSize},
		Client: ClientConfig{
			ShutdownTimeout: Duration(client.DefaultShutdownTimeout),
			CommandTimeout:  Duration(client.DefaultCommandTimeout),
		},
		Reconnect: ReconnectConfig{
			Enabled:      true,
			InitialDelay: Duration(rc.InitialDelay),
			MaxDelay:     Duration(rc.MaxDelay),
			Multiplier:   rc.Multiplier,
			Jitter:       rc.AddJitter,
		},
		Render: RenderConfig{
			Enabled:         true,
			Interval:        Duration(time.Second),
			EncounterFormat: "[title] | [duration] | [dps:k.1] dps",
			CombatantFormat: "[rank]. [job] [name] [dps:k.1] ([damagepct])",
			SortBy:          "dps",
			TopN:            8,
			Grouping:        true,
		},
		Archive: ArchiveConfig{
			Bucket:  "actmeter_encounters",
			MaxSize: 200,
			Restore: true,
		},
		HTTP: HTTPConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:9464",
			MetricsPath: "/metrics",
			HealthPath:  "/health",
		},
	}
}

// UsesNATS reports whether any enabled part needs the NATS connection.
func (c *Config) UsesNATS() bool {
	return c.Transport == TransportIPC || c.Archive.Enabled
}

// Validate checks the configuration, reporting every problem found.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", fmt.Sprintf(format, args...)))
	}

	switch c.Transport {
	case TransportWebSocket:
		if err := c.WebSocket.Transport().Validate(); err != nil {
			errs = append(errs, err)
		}
		if err := c.WebSocket.TLS.Validate(); err != nil {
			errs = append(errs, err)
		}
	case TransportIPC:
		if err := c.IPC.Transport().Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		invalid("check transport %q", c.Transport)
	}

	if c.UsesNATS() {
		if len(c.NATS.URLs) == 0 {
			invalid("check nats urls")
		}
		for _, u := range c.NATS.URLs {
			if !strings.HasPrefix(u, "nats://") && !strings.HasPrefix(u, "tls://") {
				invalid("check nats url %q", u)
			}
		}
		if c.NATS.Token != "" && c.NATS.Username != "" {
			invalid("check nats auth: token and username are exclusive")
		}
		if err := c.NATS.TLS.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.History.MaxSize < 1 {
		invalid("check history max_size %d", c.History.MaxSize)
	}
	if c.Client.ShutdownTimeout < 0 || c.Client.CommandTimeout < 0 {
		invalid("check client timeouts")
	}

	if c.Reconnect.Enabled {
		if err := c.Reconnect.Retry().Validate(); err != nil {
			errs = append(errs, errors.WrapInvalid(err, "config", "Validate", "check reconnect"))
		}
	}

	if c.Render.Enabled {
		if c.Render.Interval <= 0 {
			invalid("check render interval %s", c.Render.Interval)
		}
		if c.Render.TopN < 0 {
			invalid("check render top_n %d", c.Render.TopN)
		}
		if c.Render.SortBy != "" && !combat.CombatantTags.Has(c.Render.SortBy) {
			invalid("check render sort_by %q", c.Render.SortBy)
		}
	}

	if c.Archive.Enabled {
		if !isValidBucketName(c.Archive.Bucket) {
			invalid("check archive bucket %q", c.Archive.Bucket)
		}
		if c.Archive.MaxSize < 1 {
			invalid("check archive max_size %d", c.Archive.MaxSize)
		}
	}

	if c.HTTP.Enabled {
		if c.HTTP.Addr == "" {
			invalid("check http addr")
		}
		if !strings.HasPrefix(c.HTTP.MetricsPath, "/") || !strings.HasPrefix(c.HTTP.HealthPath, "/") {
			invalid("check http paths")
		}
		if c.HTTP.MetricsPath == c.HTTP.HealthPath {
			invalid("check http paths: metrics and health share %s", c.HTTP.MetricsPath)
		}
	}

	return errors.Join(errs...)
}

// isValidBucketName checks a JetStream bucket name: letters, digits, dash
// and underscore.
func isValidBucketName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
