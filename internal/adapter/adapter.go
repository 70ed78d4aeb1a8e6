package adapter

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// MakeTLSConfig returns a client [*tls.Config] trusting the CA at ca.
// cert and key are optional; when both are set the client presents them
// for mutual TLS.
//
// All args are the filepaths.
func MakeTLSConfig(ca, cert, key string) (*tls.Config, error) {
	const op = "adapter.MakeTLSConfig"

	caCert, err := os.ReadFile(ca)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read CA certificate file: %w", op, err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("%s: failed to parse CA certificate", op)
	}

	cfg := &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}

	switch {
	case cert != "" && key != "":
		clientCert, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cfg.Certificates = []tls.Certificate{clientCert}
	case cert != "" || key != "":
		return nil, fmt.Errorf("%s: %w", op,
			errors.New("client certificate and key must be set together"))
	}

	return cfg, nil
}
