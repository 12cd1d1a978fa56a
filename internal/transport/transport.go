// Package transport produces connected byte-stream endpoints, plain or
// TLS-wrapped, for both the server and the companion query client.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// DefaultDialTimeout bounds connection establishment on the client side.
const DefaultDialTimeout = 10 * time.Second

// TransportError is a socket-level failure: DNS resolution, connect, or I/O
// on an established connection. Transient cases may be worth retrying.
type TransportError struct {
	// Op is the operation that failed (e.g. "dial").
	Op string
	// Address is the remote address involved.
	Address string
	// Err is the underlying error.
	Err error
}

// Error returns a description of the failure.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// TLSError is a handshake or certificate failure. Unlike a TransportError it
// is not worth retrying: the peer or the certificate material is wrong.
type TLSError struct {
	// Address is the remote address involved, or empty for local cert errors.
	Address string
	// Err is the underlying error.
	Err error
}

// Error returns a description of the failure.
func (e *TLSError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("tls: %v", e.Err)
	}
	return fmt.Sprintf("tls: %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *TLSError) Unwrap() error {
	return e.Err
}

// Dial opens a plain TCP connection to address ("host:port").
// Ownership of the returned connection passes to the caller.
func Dial(address string) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", address, DefaultDialTimeout)
	if err != nil {
		return nil, &TransportError{Op: "dial", Address: address, Err: err}
	}
	return conn, nil
}

// DialTLS opens a TLS connection to address, verifying the server against the
// CA certificates in caFile. The handshake runs eagerly so certificate
// problems surface here rather than on the first read.
func DialTLS(address, caFile string) (net.Conn, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, &TLSError{Err: fmt.Errorf("reading CA file %s: %w", caFile, err)}
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, &TLSError{Err: fmt.Errorf("no valid certificates in CA file %s", caFile)}
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, &TransportError{Op: "dial", Address: address, Err: err}
	}

	rawConn, err := net.DialTimeout("tcp", address, DefaultDialTimeout)
	if err != nil {
		return nil, &TransportError{Op: "dial", Address: address, Err: err}
	}

	tlsConn := tls.Client(rawConn, &tls.Config{
		RootCAs:    pool,
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return nil, &TLSError{Address: address, Err: err}
	}

	return tlsConn, nil
}

// WrapServer upgrades an accepted raw connection to server-side TLS and runs
// the handshake eagerly. On failure the raw connection is closed and a
// *TLSError is returned; the listener is unaffected.
func WrapServer(conn net.Conn, cfg *tls.Config) (net.Conn, error) {
	tlsConn := tls.Server(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, &TLSError{Address: conn.RemoteAddr().String(), Err: err}
	}
	return tlsConn, nil
}
