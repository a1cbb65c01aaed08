package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/errors"
)

// writeSelfSigned writes a self-signed certificate and key, returning
// their paths.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "actmeter-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestLoadClientTLSConfig_Disabled(t *testing.T) {
	cfg, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{"/does/not/matter"}})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t, t.TempDir())

	cfg, err := LoadClientTLSConfig(ClientConfig{
		Enabled:    true,
		CAFiles:    []string{certFile},
		MinVersion: "1.3",
		CertFile:   certFile,
		KeyFile:    keyFile,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	assert.NotNil(t, cfg.RootCAs)
	assert.Len(t, cfg.Certificates, 1)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestLoadClientTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0600))

	tests := []struct {
		name    string
		cfg     ClientConfig
		invalid bool
	}{
		{"missing CA", ClientConfig{Enabled: true, CAFiles: []string{filepath.Join(dir, "none.pem")}}, false},
		{"bad PEM", ClientConfig{Enabled: true, CAFiles: []string{garbage}}, false},
		{"missing key pair", ClientConfig{Enabled: true, CertFile: garbage, KeyFile: garbage}, false},
		{"half key pair", ClientConfig{Enabled: true, CertFile: garbage}, true},
		{"bad version", ClientConfig{Enabled: true, MinVersion: "1.0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClientTLSConfig(tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.IsInvalid(err))
			assert.Equal(t, !tt.invalid, errors.IsFatal(err))
		})
	}
}

func TestLoadClientTLSConfig_Insecure(t *testing.T) {
	cfg, err := LoadClientTLSConfig(ClientConfig{Enabled: true, InsecureSkipVerify: true})
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}
