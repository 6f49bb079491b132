// Package ingest implements the Unix-socket ingestion transport of the
// display process: the sole entry point through which any sibling process
// pushes a notification. Each connection carries exactly one JSON envelope
// and gets one JSON acknowledgement back.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/qingchang/notchbridge/internal/notification"
)

// maxRequestBytes bounds the single-shot read of a request. There is no
// framing on this socket; one connection is one envelope.
const maxRequestBytes = 64 * 1024

// Handler receives each decoded notification; it is the boundary to the
// display pipeline. It must not block: a slow display must not back up the
// accept loop.
type Handler func(n *notification.Notification)

var peerUIDMatchesCurrentUserFn = peerUIDMatchesCurrentUser

// Server listens for notification envelopes on a Unix socket.
type Server struct {
	socketPath string
	handler    Handler
	listener   net.Listener
	wg         sync.WaitGroup
}

// NewServer creates a new ingestion server.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
	}
}

// Start begins listening for connections. Any stale socket file left by an
// unclean shutdown is removed first.
func (s *Server) Start() error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Stop closes the listener, waits for in-flight connections, and removes
// the socket file.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	ok, err := peerUIDMatchesCurrentUserFn(conn)
	if err != nil {
		writeAck(conn, &notification.Ack{Error: "peer uid check failed"})
		return
	}
	if !ok {
		writeAck(conn, &notification.Ack{Error: "peer uid mismatch"})
		return
	}

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		writeAck(conn, &notification.Ack{Error: "empty request"})
		return
	}

	var notif notification.Notification
	if err := json.Unmarshal(buf[:n], &notif); err != nil {
		slog.Debug("ingest: malformed request", "error", err)
		writeAck(conn, &notification.Ack{Error: "invalid JSON payload"})
		return
	}
	if err := notif.Validate(); err != nil {
		writeAck(conn, &notification.Ack{Error: err.Error()})
		return
	}

	s.handler(&notif)
	writeAck(conn, &notification.Ack{Success: true})
}

func writeAck(conn net.Conn, ack *notification.Ack) {
	enc := json.NewEncoder(conn)
	enc.Encode(ack) //nolint: errcheck
}
