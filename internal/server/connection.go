package server

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linesift/linesift/internal/logging"
	"github.com/linesift/linesift/internal/transport"
)

// Connection errors.
var (
	// ErrInvalidEncoding is returned when a query is not valid UTF-8.
	ErrInvalidEncoding = errors.New("server: query is not valid UTF-8")
)

// Response tokens of the wire protocol.
const (
	responseExists   = "STRING EXISTS\n"
	responseNotFound = "STRING NOT FOUND\n"
	responseErrorPfx = "ERROR: "
)

// maxQuerySize caps a single query payload. One read carries one logical
// query; a read that fills the whole buffer is treated as over-long.
const maxQuerySize = 64 * 1024

// Connection represents an individual client session. It reads
// newline-delimited queries, delegates each to the index, and writes the
// status token back, until the peer disconnects or the server is stopping.
type Connection struct {
	// conn is the underlying network connection, possibly TLS-wrapped.
	conn net.Conn
	// server is the parent server instance.
	server *Server
	// logger is the logger for this connection.
	logger logging.Logger
	// requestID is the unique identifier for this connection.
	requestID string
	// startTime is when the connection was established.
	startTime time.Time
}

// newConnection creates a Connection for the given accepted connection.
func newConnection(conn net.Conn, server *Server) *Connection {
	requestID := logging.GenerateRequestID()

	return &Connection{
		conn:      conn,
		server:    server,
		logger:    server.logger.WithRequestID(requestID),
		requestID: requestID,
		startTime: time.Now(),
	}
}

// handle is the main query loop for the connection. It blocks until the peer
// disconnects, a protocol or transport error occurs, or the server stops.
// The connection is closed exactly once on every exit path.
func (c *Connection) handle() {
	if tlsConn, ok := c.conn.(*tls.Conn); ok {
		c.logger.Info("connection established",
			"client", c.conn.RemoteAddr().String(),
			"tls", transport.TLSVersionString(tlsConn.ConnectionState().Version))
	} else {
		c.logger.Info("connection established",
			"client", c.conn.RemoteAddr().String())
	}

	defer func() {
		c.conn.Close()
		c.logger.Info("connection closed",
			"client", c.conn.RemoteAddr().String(),
			"duration_ms", time.Since(c.startTime).Milliseconds())
	}()

	buf := make([]byte, maxQuerySize)

	for {
		select {
		case <-c.server.done:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))

		n, err := c.conn.Read(buf)
		if err != nil {
			// Deadline expiry is a poll point to re-check shutdown.
			if isTimeoutError(err) {
				continue
			}
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Warn("network error",
				"client", c.conn.RemoteAddr().String(),
				"error", err.Error())
			return
		}

		if n == maxQuerySize {
			c.logger.Warn("query too large",
				"client", c.conn.RemoteAddr().String(),
				"limit", maxQuerySize)
			return
		}

		if !c.serveQuery(buf[:n]) {
			return
		}
	}
}

// serveQuery handles one read payload as a single query. It reports whether
// the connection should keep serving.
func (c *Connection) serveQuery(payload []byte) bool {
	if !utf8.Valid(payload) {
		c.logger.Warn("protocol error",
			"client", c.conn.RemoteAddr().String(),
			"error", ErrInvalidEncoding.Error())
		return false
	}

	// One logical query per read: strip the trailing line terminator and
	// trailing whitespace. Leading whitespace stays significant.
	query := strings.TrimRight(string(payload), " \t\r\n")
	if query == "" {
		c.logger.Debug("empty query received, treating as peer close",
			"client", c.conn.RemoteAddr().String())
		return false
	}

	c.logger.Debug("query received", "query", query)

	start := time.Now()
	found, err := c.server.index.Lookup(query)
	if err != nil {
		// Lookup failure degrades to an error response; the connection
		// stays open for further queries.
		c.logger.Error("lookup failed",
			"query", query,
			"error", err.Error())
		return c.respond(responseErrorPfx + err.Error() + "\n")
	}

	response := responseNotFound
	if found {
		response = responseExists
	}

	c.logger.Info("query answered",
		"query", query,
		"found", found,
		"duration_ms", time.Since(start).Milliseconds())

	return c.respond(response)
}

// respond writes one line-terminated status token. A failed or short write
// tears the connection down.
func (c *Connection) respond(response string) bool {
	if _, err := c.conn.Write([]byte(response)); err != nil {
		c.logger.Warn("write error",
			"client", c.conn.RemoteAddr().String(),
			"error", err.Error())
		return false
	}
	return true
}

// RemoteAddr returns the remote address of the connection.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// RequestID returns the unique request ID for this connection.
func (c *Connection) RequestID() string {
	return c.requestID
}
