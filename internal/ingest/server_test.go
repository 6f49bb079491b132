package ingest

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qingchang/notchbridge/internal/notification"
)

func allowPeer(t *testing.T) {
	t.Helper()
	restore := peerUIDMatchesCurrentUserFn
	peerUIDMatchesCurrentUserFn = func(conn net.Conn) (bool, error) { return true, nil }
	t.Cleanup(func() { peerUIDMatchesCurrentUserFn = restore })
}

func TestIngestRoundTrip(t *testing.T) {
	allowPeer(t)
	socketPath := filepath.Join(t.TempDir(), "notch.sock")

	received := make(chan *notification.Notification, 1)
	s := NewServer(socketPath, func(n *notification.Notification) {
		received <- n
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	ack, err := NewClient(socketPath).Send(&notification.Notification{
		Title:    "[proj] build done",
		Message:  "all tests green",
		Type:     notification.KindSuccess,
		Priority: 1,
		Metadata: map[string]string{"source": "test"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !ack.Success {
		t.Fatalf("ack = %+v, want success", ack)
	}

	select {
	case n := <-received:
		if n.Title != "[proj] build done" || n.Type != notification.KindSuccess {
			t.Fatalf("handler received %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
	if len(received) != 0 {
		t.Fatal("handler invoked more than once for a single envelope")
	}
}

func TestMalformedJSONDoesNotKillServer(t *testing.T) {
	allowPeer(t)
	socketPath := filepath.Join(t.TempDir(), "notch.sock")

	handled := make(chan struct{}, 1)
	s := NewServer(socketPath, func(n *notification.Notification) {
		handled <- struct{}{}
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("{not-json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	conn.Close()
	if err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if got := string(buf[:n]); got != "{\"success\":false,\"error\":\"invalid JSON payload\"}\n" {
		t.Fatalf("ack = %q", got)
	}
	select {
	case <-handled:
		t.Fatal("handler ran for malformed payload")
	default:
	}

	// The listener must still accept well-formed envelopes afterwards.
	ack, err := NewClient(socketPath).Send(&notification.Notification{Title: "t", Message: "m", Type: notification.KindInfo})
	if err != nil {
		t.Fatalf("Send() after malformed payload error = %v", err)
	}
	if !ack.Success {
		t.Fatalf("ack = %+v, want success", ack)
	}
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked after recovery")
	}
}

func TestMissingRequiredFieldIsReportedToCaller(t *testing.T) {
	allowPeer(t)
	socketPath := filepath.Join(t.TempDir(), "notch.sock")

	s := NewServer(socketPath, func(n *notification.Notification) {
		t.Error("handler should not run for invalid envelope")
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	ack, err := NewClient(socketPath).Send(&notification.Notification{Message: "m", Type: notification.KindInfo})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ack.Success {
		t.Fatal("ack.Success = true, want false for missing title")
	}
	if ack.Error != "missing required field: title" {
		t.Fatalf("ack.Error = %q", ack.Error)
	}
}

func TestStartRemovesStaleSocketAndSetsMode(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "notch.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0600); err != nil {
		t.Fatalf("planting stale socket: %v", err)
	}

	s := NewServer(socketPath, func(n *notification.Notification) {})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() with stale socket error = %v", err)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("socket mode = %o, want %o", got, 0o600)
	}

	s.Stop()
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatalf("socket file still present after Stop, stat error = %v", err)
	}
}

func TestHandleConnRejectsPeerUIDMismatch(t *testing.T) {
	restore := peerUIDMatchesCurrentUserFn
	peerUIDMatchesCurrentUserFn = func(conn net.Conn) (bool, error) { return false, nil }
	defer func() { peerUIDMatchesCurrentUserFn = restore }()

	s := NewServer("", func(n *notification.Notification) {
		t.Error("handler should not run on peer uid mismatch")
	})

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer serverConn.Close()
		s.handleConn(serverConn)
	}()

	buf := make([]byte, 1024)
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if got := string(buf[:n]); got != "{\"success\":false,\"error\":\"peer uid mismatch\"}\n" {
		t.Fatalf("ack = %q", got)
	}

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handleConn did not return")
	}
}
