package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/pkg/tlsutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return l
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.UsesNATS())
	assert.Equal(t, "ws://127.0.0.1:10501/ws", cfg.WebSocket.Transport().URL)
}

func TestLoader_YAMLLayer(t *testing.T) {
	path := writeFile(t, "meter.yaml", `
transport: ipc
ipc:
  prefix: overlay
  request_timeout: 750ms
nats:
  urls: ["nats://10.0.0.2:4222", "nats://10.0.0.3:4222"]
  tls:
    enabled: true
    ca_files: [/etc/actmeter/ca.pem]
history:
  max_size: 5
render:
  top_n: 3
  sort_by: hps
archive:
  enabled: true
  max_size: 1000000000
`)

	cfg, err := newTestLoader(nil).LoadFile(path)
	require.NoError(t, err)

	want := Default()
	want.Transport = TransportIPC
	want.IPC.Prefix = "overlay"
	want.IPC.RequestTimeout = Duration(750 * time.Millisecond)
	want.NATS.URLs = []string{"nats://10.0.0.2:4222", "nats://10.0.0.3:4222"}
	want.NATS.TLS = tlsutil.ClientConfig{Enabled: true, CAFiles: []string{"/etc/actmeter/ca.pem"}}
	want.History.MaxSize = 5
	want.Render.TopN = 3
	want.Render.SortBy = "hps"
	want.Archive.Enabled = true
	want.Archive.MaxSize = 1000000000

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, cfg.UsesNATS())
	assert.Equal(t, "nats://10.0.0.2:4222,nats://10.0.0.3:4222", cfg.NATS.URL())
	require.NoError(t, cfg.Validate())
}

func TestLoader_JSONLayers(t *testing.T) {
	base := writeFile(t, "base.json", `{
  "websocket": {"url": "ws://192.168.1.10:10501/ws", "close_timeout": 500000000},
  "client": {"shutdown_timeout": "3s", "player_name": "Alys Tan"},
  "reconnect": {"max_delay": "1d"}
}`)
	override := writeFile(t, "override.json", `{
  "websocket": {"url": "wss://meter.example:443/ws"},
  "render": {"enabled": false}
}`)

	l := newTestLoader(nil)
	l.AddLayer(base)
	l.AddLayer(override)
	l.EnableValidation(true)

	cfg, err := l.Load()
	require.NoError(t, err)

	want := Default()
	want.WebSocket.URL = "wss://meter.example:443/ws"
	want.WebSocket.CloseTimeout = Duration(500 * time.Millisecond)
	want.Client.ShutdownTimeout = Duration(3 * time.Second)
	want.Client.PlayerName = "Alys Tan"
	want.Reconnect.MaxDelay = Duration(24 * time.Hour)
	want.Render.Enabled = false

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 24*time.Hour, cfg.Reconnect.Retry().MaxDelay)
	assert.Equal(t, -1, cfg.Reconnect.Retry().MaxAttempts)
}

func TestLoader_EmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := newTestLoader(nil).LoadFile(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown yaml key", "a.yaml", "transprot: ipc\n"},
		{"unknown json key", "a.json", `{"histroy": {"max_size": 3}}`},
		{"bad duration", "a.yaml", "client:\n  shutdown_timeout: soon\n"},
		{"malformed json", "a.json", `{"transport": "ipc"`},
		{"wrong extension", "a.toml", "transport = 'ipc'\n"},
		{"deep json", "a.json", strings.Repeat(`{"a":`, 20) + "1" + strings.Repeat("}", 20)},
		{"deep yaml", "a.yaml", deepYAML(20)},
		{"yaml alias", "a.yaml", "render: &r\n  top_n: 3\nhistory: *r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(nil).LoadFile(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}

	_, err := newTestLoader(nil).LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	l := newTestLoader(map[string]string{
		"ACTMETER_TRANSPORT":   "ipc",
		"ACTMETER_NATS_URLS":   "nats://a:4222,nats://b:4222",
		"ACTMETER_NATS_TOKEN":  "s3cret",
		"ACTMETER_HTTP_ADDR":   ":9999",
		"ACTMETER_PLAYER_NAME": "",
	})

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, TransportIPC, cfg.Transport)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "s3cret", cfg.NATS.Token)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Client.PlayerName)

	_, err = newTestLoader(map[string]string{"ACTMETER_NATS_TOKEN": "a\x00b"}).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverridesChecked(t *testing.T) {
	tests := map[string]string{
		"ACTMETER_TRANSPORT":     "carrier-pigeon",
		"ACTMETER_WEBSOCKET_URL": "http://127.0.0.1:10501/ws",
		"ACTMETER_NATS_URLS":     "nats://a:4222,b:4222",
		"ACTMETER_NATS_PASSWORD": " padded",
		"ACTMETER_HTTP_ADDR":     "9464",
		"ACTMETER_PLAYER_NAME":   strings.Repeat("x", 65),
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg, err := newTestLoader(map[string]string{key: value}).Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoader_EnvOverridesAllOrNothing(t *testing.T) {
	l := newTestLoader(map[string]string{
		"ACTMETER_TRANSPORT":   "ipc",
		"ACTMETER_PLAYER_NAME": "bad\x07name",
	})
	_, err := l.Load()
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func deepYAML(levels int) string {
	var b strings.Builder
	for i := 0; i < levels; i++ {
		b.WriteString(strings.Repeat("  ", i) + "k:\n")
	}
	b.WriteString(strings.Repeat("  ", levels) + "v: 1\n")
	return b.String()
}

func TestLoader_ValidationFailure(t *testing.T) {
	l := newTestLoader(map[string]string{"ACTMETER_TRANSPORT": "carrier-pigeon"})
	l.EnableValidation(true)

	_, err := l.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"websocket scheme", func(c *Config) { c.WebSocket.URL = "http://127.0.0.1:10501/ws" }},
		{"ipc prefix", func(c *Config) { c.Transport = TransportIPC; c.IPC.Prefix = "act.*" }},
		{"nats url", func(c *Config) { c.Transport = TransportIPC; c.NATS.URLs = []string{"127.0.0.1:4222"} }},
		{"nats no urls", func(c *Config) { c.Archive.Enabled = true; c.NATS.URLs = nil }},
		{"nats auth", func(c *Config) { c.Transport = TransportIPC; c.NATS.Token = "t"; c.NATS.Username = "u" }},
		{"websocket tls", func(c *Config) { c.WebSocket.TLS = tlsutil.ClientConfig{Enabled: true, KeyFile: "k.pem"} }},
		{"nats tls", func(c *Config) { c.Transport = TransportIPC; c.NATS.TLS = tlsutil.ClientConfig{Enabled: true, MinVersion: "1.1"} }},
		{"history size", func(c *Config) { c.History.MaxSize = 0 }},
		{"negative timeout", func(c *Config) { c.Client.CommandTimeout = -1 }},
		{"reconnect delays", func(c *Config) { c.Reconnect.InitialDelay = Duration(time.Minute) }},
		{"render interval", func(c *Config) { c.Render.Interval = 0 }},
		{"render sort", func(c *Config) { c.Render.SortBy = "style" }},
		{"render top", func(c *Config) { c.Render.TopN = -1 }},
		{"archive bucket", func(c *Config) { c.Archive.Enabled = true; c.Archive.Bucket = "a.b" }},
		{"archive size", func(c *Config) { c.Archive.Enabled = true; c.Archive.MaxSize = 0 }},
		{"http paths", func(c *Config) { c.HTTP.HealthPath = c.HTTP.MetricsPath }},
		{"http addr", func(c *Config) { c.HTTP.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "got %v", err)
		})
	}

	t.Run("disabled sections are not checked", func(t *testing.T) {
		cfg := Default()
		cfg.Render.Enabled = false
		cfg.Render.Interval = 0
		cfg.HTTP.Enabled = false
		cfg.HTTP.Addr = ""
		cfg.Reconnect.Enabled = false
		cfg.Reconnect.InitialDelay = Duration(time.Hour)
		assert.NoError(t, cfg.Validate())
	})
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`2000`), &d))
	assert.Equal(t, 2*time.Microsecond, d.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`14d`), &d))
	assert.Equal(t, 14*24*time.Hour, d.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`1000000`), &d))
	assert.Equal(t, time.Millisecond, d.Std())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, yaml.Unmarshal([]byte(`[1s]`), &d))

	out, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.JSONEq(t, `"1.5s"`, string(out))
}

func TestConfig_Marshal(t *testing.T) {
	cfg := Default()
	cfg.History.MaxSize = 7

	out, err := cfg.Marshal("yaml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_size: 7")
	assert.Contains(t, string(out), "handshake_timeout: 10s")

	out, err = cfg.Marshal("json")
	require.NoError(t, err)

	var back Config
	require.NoError(t, json.Unmarshal(out, &back))
	if diff := cmp.Diff(cfg, &back); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateConfigPath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.yaml")))
	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.YML")))
	assert.NoError(t, validateConfigPath(filepath.Join(dir, "a.json")))
	assert.Error(t, validateConfigPath(filepath.Join(dir, "a.ini")))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("../../outside.yaml"))
}
