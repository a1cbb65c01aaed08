package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/actmeter/errors"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "ACTMETER"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies defaults, every layer in order, then environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := l.decodeFile(path, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "load "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "apply environment")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// decodeFile decodes one layer onto cfg. Keys the layer omits keep their
// current value; unknown keys are rejected.
func (l *Loader) decodeFile(path string, cfg *Config) error {
	data, err := readConfigFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := checkJSONShape(data); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
	default:
		if err := checkYAMLShape(data); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults alone.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
	}
	return nil
}

// applyEnvOverrides replaces fields from ACTMETER_* variables. Each value is
// checked against the field it replaces before anything is applied.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		name  string
		check envCheck
		apply func(string)
	}{
		{"TRANSPORT", checkTransport, func(v string) { cfg.Transport = v }},
		{"WEBSOCKET_URL", checkURL("ws", "wss"), func(v string) { cfg.WebSocket.URL = v }},
		{"NATS_URLS", checkURLList("nats", "tls"), func(v string) { cfg.NATS.URLs = splitList(v) }},
		{"NATS_USERNAME", checkSecret, func(v string) { cfg.NATS.Username = v }},
		{"NATS_PASSWORD", checkSecret, func(v string) { cfg.NATS.Password = v }},
		{"NATS_TOKEN", checkSecret, func(v string) { cfg.NATS.Token = v }},
		{"HTTP_ADDR", checkHostPort, func(v string) { cfg.HTTP.Addr = v }},
		{"PLAYER_NAME", checkPlayerName, func(v string) { cfg.Client.PlayerName = v }},
	}

	var apply []func()
	for _, o := range overrides {
		key := l.envPrefix + "_" + o.name
		val, ok := l.lookupEnv(key)
		if !ok || val == "" {
			continue
		}
		if err := validateEnvVar(key, val, o.check); err != nil {
			return err
		}
		set := o.apply
		apply = append(apply, func() { set(val) })
	}
	for _, fn := range apply {
		fn()
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Marshal encodes the configuration as YAML, or JSON when format is "json".
func (c *Config) Marshal(format string) ([]byte, error) {
	if strings.EqualFold(format, "json") {
		return json.MarshalIndent(c, "", "  ")
	}
	return yaml.Marshal(c)
}
