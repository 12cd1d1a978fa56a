// Package server provides the TCP line-lookup server implementation.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linesift/linesift/internal/logging"
	"github.com/linesift/linesift/internal/transport"
)

// Server errors.
var (
	// ErrAlreadyRunning is returned when Start is called on a running server.
	ErrAlreadyRunning = errors.New("server: already running")
	// ErrListenFailed is returned when the listening socket cannot be bound.
	ErrListenFailed = errors.New("server: failed to bind listener")
	// ErrServerStopped is returned when Start is called on a stopped server.
	// A Server is one-shot: create a new one instead of restarting.
	ErrServerStopped = errors.New("server: already stopped")
)

// Index answers dataset membership queries. Lookups from multiple
// connections may run concurrently.
type Index interface {
	Lookup(query string) (bool, error)
}

// Config holds the server configuration.
type Config struct {
	// Address is the listen address ("host:port").
	Address string
	// TLSConfig, when non-nil, upgrades every accepted connection to TLS.
	TLSConfig *tls.Config
	// ReadTimeout bounds each accept and read call so the shutdown signal
	// is observed within one interval. Defaults to one second.
	ReadTimeout time.Duration
	// Logger is the server's logger. Defaults to a no-op logger.
	Logger logging.Logger
}

// Server owns the listening socket, spawns one connection handler per
// accepted connection, and drives cooperative shutdown across all of them.
type Server struct {
	// config holds the server configuration.
	config Config
	// index answers membership queries.
	index Index
	// logger is the server's logger.
	logger logging.Logger
	// listener is the TCP listening socket.
	listener *net.TCPListener
	// running indicates whether the server is running.
	running atomic.Bool
	// mu protects listener and conns.
	mu sync.Mutex
	// wg tracks the accept loop and all connection handlers.
	wg sync.WaitGroup
	// done signals shutdown to the accept loop and every handler.
	done chan struct{}
	// conns is the active-handler registry.
	conns map[*Connection]struct{}
}

// New creates a new Server serving lookups from the given index.
func New(cfg Config, index Index) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Server{
		config: cfg,
		index:  index,
		logger: logger,
		done:   make(chan struct{}),
		conns:  make(map[*Connection]struct{}),
	}
}

// Start binds the listening socket and starts accepting connections.
// A bind failure is fatal and propagates; Start does not block on serving.
// A stopped server cannot be started again.
func (s *Server) Start() error {
	select {
	case <-s.done:
		return ErrServerStopped
	default:
	}

	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("%w: %v", ErrListenFailed, err)
	}

	s.mu.Lock()
	s.listener = listener.(*net.TCPListener)
	s.mu.Unlock()

	s.logger.Info("server listening",
		"address", listener.Addr().String(),
		"tls", s.config.TLSConfig != nil)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully stops the server. It is idempotent: it flips the shutdown
// signal, closes the listening socket to unblock a pending accept, and waits
// until every previously accepted connection has fully exited, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	close(s.done)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("server shutdown timed out")
		return ctx.Err()
	}
}

// Addr returns the address the listener is bound to.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// ActiveConnections returns the number of registered connection handlers.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// acceptLoop accepts incoming connections until shutdown. The accept call is
// bounded by a deadline so the loop observes the shutdown signal promptly.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.listener.SetDeadline(time.Now().Add(s.config.ReadTimeout))

		conn, err := s.listener.Accept()
		if err != nil {
			// Deadline expiry is a poll point, not an error.
			if isTimeoutError(err) {
				continue
			}

			select {
			case <-s.done:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.logger.Warn("accept error", "error", err.Error())
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection optionally upgrades an accepted connection to TLS and runs
// its handler. A failed handshake closes that connection only; the listener
// keeps accepting.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	if s.config.TLSConfig != nil {
		// The handshake runs under the same deadline as every other
		// blocking call; a peer that connects and goes silent fails it
		// instead of holding this handler open across shutdown.
		conn.SetDeadline(time.Now().Add(s.config.ReadTimeout))
		tlsConn, err := transport.WrapServer(conn, s.config.TLSConfig)
		if err != nil {
			s.logger.Warn("TLS handshake failed",
				"client", conn.RemoteAddr().String(),
				"error", err.Error())
			return
		}
		tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	c := newConnection(conn, s)
	s.register(c)
	defer s.deregister(c)

	c.handle()
}

// register adds a connection to the active-handler registry.
func (s *Server) register(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

// deregister removes a connection from the active-handler registry.
func (s *Server) deregister(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// isTimeoutError reports whether err is a deadline expiry.
func isTimeoutError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
