package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
)

// TLS configuration errors.
var (
	ErrNoCertificate    = errors.New("transport: no certificate provided")
	ErrNoPrivateKey     = errors.New("transport: no private key provided")
	ErrCertFileNotFound = errors.New("transport: certificate file not found")
	ErrKeyFileNotFound  = errors.New("transport: private key file not found")
)

// Default cipher suites (secure defaults for TLS 1.2).
// TLS 1.3 cipher suites are automatically managed by Go.
var defaultCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// LoadServerTLSConfig loads the certificate/key pair and returns a server-side
// *tls.Config with secure defaults. Missing or unreadable certificate material
// is fatal to startup, so errors here propagate rather than degrade.
func LoadServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" {
		return nil, ErrNoCertificate
	}
	if keyFile == "" {
		return nil, ErrNoPrivateKey
	}

	if _, err := os.Stat(certFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrCertFileNotFound, certFile)
	}
	if _, err := os.Stat(keyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrKeyFileNotFound, keyFile)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to load certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: defaultCipherSuites,
	}, nil
}

// TLSVersionString returns a human-readable string for a TLS version.
func TLSVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("unknown (0x%04x)", version)
	}
}
