package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned when a PEM file holds no certificates.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// LoadPool returns the system roots plus the certificates in caFile.
// An empty caFile returns the system roots alone.
func LoadPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if caFile == "" {
		return pool, nil
	}

	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read CA file %s: %w", caFile, err)
	}
	if _, err := AppendPEM(pool, data); err != nil {
		return nil, fmt.Errorf("tlsroots: %s: %w", caFile, err)
	}
	return pool, nil
}

// AppendPEM adds every CERTIFICATE block in data to pool and returns how
// many were added. Other block types are skipped.
func AppendPEM(pool *x509.CertPool, data []byte) (int, error) {
	var added int
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return added, fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}

	if added == 0 {
		return 0, ErrNoCertsFound
	}
	return added, nil
}

// ClientOptions describes an outbound TLS connection.
type ClientOptions struct {
	// CAFile adds private roots to the system pool.
	CAFile string

	// CertFile and KeyFile enable client certificate authentication.
	// Both or neither must be set.
	CertFile string
	KeyFile  string

	// ServerName overrides the name checked against the server certificate.
	ServerName string
}

// ClientConfig builds a TLS 1.2+ client config from opts.
func ClientConfig(opts ClientOptions) (*tls.Config, error) {
	if (opts.CertFile == "") != (opts.KeyFile == "") {
		return nil, errors.New("tlsroots: cert_file and key_file must be set together")
	}

	pool, err := LoadPool(opts.CAFile)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		ServerName: opts.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if opts.CertFile != "" {
		kp, err := NewKeyPair(opts.CertFile, opts.KeyFile, nil)
		if err != nil {
			return nil, err
		}
		cfg.GetClientCertificate = kp.GetClientCertificate
	}
	return cfg, nil
}
