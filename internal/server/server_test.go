package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesift/linesift/internal/index"
)

// testReadTimeout keeps shutdown polling fast in tests.
const testReadTimeout = 50 * time.Millisecond

// startTestServer starts a server on a loopback port and arranges its stop.
func startTestServer(t *testing.T, cfg Config, ix Index) *Server {
	t.Helper()

	cfg.Address = "127.0.0.1:0"
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = testReadTimeout
	}

	srv := New(cfg, ix)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	return srv
}

// newTestIndex writes a dataset file and returns a FileIndex over it.
func newTestIndex(t *testing.T, content string, reread bool) *index.FileIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return index.New(path, reread)
}

// sendQuery writes one query over conn and reads back one response line.
func sendQuery(t *testing.T, conn net.Conn, query string) string {
	t.Helper()

	_, err := conn.Write([]byte(query + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestQueryResponses(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\nbanana\ncherry\n", false))

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	tests := []struct {
		query string
		want  string
	}{
		{"banana", "STRING EXISTS\n"},
		{"kiwi", "STRING NOT FOUND\n"},
		{"apple", "STRING EXISTS\n"},
		{"cherry", "STRING EXISTS\n"},
		{"banan", "STRING NOT FOUND\n"},
		{"bananas", "STRING NOT FOUND\n"},
	}

	// All exchanges ride the same persistent connection.
	for _, tt := range tests {
		assert.Equal(t, tt.want, sendQuery(t, conn, tt.query), "query %q", tt.query)
	}
}

func TestQueryFraming(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n banana\n", false))

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"newline terminated", "apple\n", "STRING EXISTS\n"},
		{"no terminator", "apple", "STRING EXISTS\n"},
		{"crlf terminated", "apple\r\n", "STRING EXISTS\n"},
		{"trailing whitespace stripped", "apple  \n", "STRING EXISTS\n"},
		{"leading whitespace significant", " banana\n", "STRING EXISTS\n"},
		{"leading whitespace no match", " apple\n", "STRING NOT FOUND\n"},
		{"embedded delimiter is part of the query", "apple\nbanana\n", "STRING NOT FOUND\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := net.Dial("tcp", srv.Addr())
			require.NoError(t, err)
			defer conn.Close()

			_, err = conn.Write([]byte(tt.raw))
			require.NoError(t, err)

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			line, err := bufio.NewReader(conn).ReadString('\n')
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestMissingDatasetKeepsConnectionOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	srv := startTestServer(t, Config{}, index.New(path, true))

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	want := "ERROR: File not found: " + path + "\n"
	assert.Equal(t, want, sendQuery(t, conn, "apple"))

	// The connection survives the lookup failure; once the dataset shows
	// up the same connection serves real answers.
	require.NoError(t, os.WriteFile(path, []byte("apple\n"), 0644))
	assert.Equal(t, "STRING EXISTS\n", sendQuery(t, conn, "apple"))
}

func TestLookupErrorResponse(t *testing.T) {
	srv := startTestServer(t, Config{}, stubIndex{err: errors.New("dataset unavailable")})

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "ERROR: dataset unavailable\n", sendQuery(t, conn, "apple"))
	// Still serving after the error.
	assert.Equal(t, "ERROR: dataset unavailable\n", sendQuery(t, conn, "banana"))
}

func TestRereadSeesDatasetMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.txt")
	require.NoError(t, os.WriteFile(path, []byte("apple\nbanana\n"), 0644))
	srv := startTestServer(t, Config{}, index.New(path, true))

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "STRING EXISTS\n", sendQuery(t, conn, "banana"))

	require.NoError(t, os.WriteFile(path, []byte("apple\n"), 0644))

	assert.Equal(t, "STRING NOT FOUND\n", sendQuery(t, conn, "banana"))
}

func TestInvalidUTF8ClosesConnection(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0xff, 0xfe, 0xfd, '\n'})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = bufio.NewReader(conn).ReadString('\n')
	assert.Error(t, err, "server must close the connection on undecodable input")
}

func TestOversizedQueryClosesConnection(t *testing.T) {
	srv := New(Config{ReadTimeout: testReadTimeout}, stubIndex{found: true})

	// A synchronous pipe delivers the pending payload in full, so the
	// handler's read fills its entire buffer in one call.
	client, serverSide := net.Pipe()
	defer client.Close()

	handlerDone := make(chan struct{})
	go func() {
		newConnection(serverSide, srv).handle()
		close(handlerDone)
	}()

	writeDone := make(chan struct{})
	go func() {
		client.Write(bytes.Repeat([]byte("a"), maxQuerySize+1))
		close(writeDone)
	}()

	select {
	case <-handlerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not close the connection on an oversized query")
	}

	// The connection was closed without a response.
	client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(make([]byte, 1))
	assert.Error(t, err)
	<-writeDone
}

func TestClientDisconnectIsIsolated(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	first, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	assert.Equal(t, "STRING EXISTS\n", sendQuery(t, first, "apple"))

	second, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer second.Close()

	// First client goes away; the second must be unaffected.
	first.Close()
	assert.Equal(t, "STRING EXISTS\n", sendQuery(t, second, "apple"))

	// The abandoned handler deregisters within a poll interval.
	require.Eventually(t, func() bool {
		return srv.ActiveConnections() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConcurrentClients(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\nbanana\ncherry\n", false))

	const clients = 16
	errCh := make(chan error, clients)

	for i := 0; i < clients; i++ {
		go func(n int) {
			conn, err := net.Dial("tcp", srv.Addr())
			if err != nil {
				errCh <- err
				return
			}
			defer conn.Close()

			for j := 0; j < 10; j++ {
				if _, err := conn.Write([]byte("banana\n")); err != nil {
					errCh <- err
					return
				}
				conn.SetReadDeadline(time.Now().Add(5 * time.Second))
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					errCh <- err
					return
				}
				if line != "STRING EXISTS\n" {
					errCh <- errors.New("unexpected response: " + line)
					return
				}
			}
			errCh <- nil
		}(i)
	}

	for i := 0; i < clients; i++ {
		require.NoError(t, <-errCh)
	}
}

func TestStopDrainsHandlers(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	conns := make([]net.Conn, 0, 4)
	for i := 0; i < 4; i++ {
		conn, err := net.Dial("tcp", srv.Addr())
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, "STRING EXISTS\n", sendQuery(t, conn, "apple"))
		conns = append(conns, conn)
	}

	require.Eventually(t, func() bool {
		return srv.ActiveConnections() == 4
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// Every handler has exited and deregistered.
	assert.Equal(t, 0, srv.ActiveConnections())

	// Idle peers observe the close.
	for _, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, err := bufio.NewReader(conn).ReadString('\n')
		assert.Error(t, err)
	}

	// The listener is gone.
	_, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	assert.Error(t, err)
}

func TestStopIsIdempotent(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
}

func TestStartAfterStop(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// A stopped server is one-shot and refuses to restart.
	assert.ErrorIs(t, srv.Start(), ErrServerStopped)
}

func TestStartErrors(t *testing.T) {
	srv := startTestServer(t, Config{}, newTestIndex(t, "apple\n", false))

	// Starting a running server fails.
	assert.ErrorIs(t, srv.Start(), ErrAlreadyRunning)

	// Binding an occupied port fails at startup.
	dup := New(Config{Address: srv.Addr(), ReadTimeout: testReadTimeout}, stubIndex{})
	err := dup.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrListenFailed)
}

// stubIndex is a canned Index implementation for error-path tests.
type stubIndex struct {
	found bool
	err   error
}

func (s stubIndex) Lookup(string) (bool, error) {
	return s.found, s.err
}
