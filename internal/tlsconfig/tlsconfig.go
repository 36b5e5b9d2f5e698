// Package tlsconfig builds client TLS configurations from PEM files.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Files names the PEM files of a client TLS setup. All fields are optional, but CertFile and
// KeyFile must be set together.
type Files struct {
	CAFile     string
	CertFile   string
	KeyFile    string
	ServerName string
}

// Load returns a TLS 1.2+ client configuration. An empty CAFile keeps the system roots.
func Load(f Files) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: f.ServerName,
	}

	if f.CAFile != "" {
		caCert, err := os.ReadFile(f.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		cfg.RootCAs = certPool
	}

	switch {
	case f.CertFile != "" && f.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	case f.CertFile != "" || f.KeyFile != "":
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	return cfg, nil
}
