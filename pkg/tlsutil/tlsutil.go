// Package tlsutil builds client TLS configuration for aggregator and NATS
// connections.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/actmeter/errors"
)

// ClientConfig holds TLS configuration for websocket and NATS clients.
// The system CA bundle is always trusted; CAFiles are additional CAs.
type ClientConfig struct {
	Enabled            bool     `json:"enabled" yaml:"enabled"`
	CAFiles            []string `json:"ca_files,omitempty" yaml:"ca_files,omitempty"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"` // DEV/TEST ONLY
	MinVersion         string   `json:"min_version,omitempty" yaml:"min_version,omitempty"`                   // "1.2" or "1.3"

	// Client certificate for mTLS; both or neither.
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// Validate checks the configuration without touching the filesystem.
func (c ClientConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.MinVersion {
	case "", "1.2", "1.3":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate",
			fmt.Sprintf("check min_version %q", c.MinVersion))
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate", "check cert_file and key_file pair")
	}
	return nil
}

// LoadClientTLSConfig creates a tls.Config from cfg. It returns nil, nil
// when TLS is not enabled so callers keep their library defaults.
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
	}

	// Start with system CA pool
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}

	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(
				fmt.Errorf("invalid PEM data"),
				"tlsutil",
				"LoadClientTLSConfig",
				fmt.Sprintf("parse CA certificate from %s", caFile),
			)
		}
	}
	tlsConfig.RootCAs = rootCAs

	// Setting this is intentional via config
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	if cfg.CertFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	return tlsConfig, nil
}

// parseTLSVersion converts version string to crypto/tls constant
// Returns tls.VersionTLS12 if empty or invalid
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
