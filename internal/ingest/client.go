package ingest

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/qingchang/notchbridge/internal/notification"
)

// Client sends notification envelopes to the display process over its
// Unix socket, opening a fresh connection per envelope.
type Client struct {
	socketPath string
}

// NewClient creates a client for the given socket path.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Send writes one envelope and reads the acknowledgement. The write side
// is half-closed after the payload so the server's single read observes
// the full object.
func (c *Client) Send(n *notification.Notification) (*notification.Ack, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to display process: %w", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("sending notification: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	var ack notification.Ack
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&ack); err != nil {
		return nil, fmt.Errorf("reading acknowledgement: %w", err)
	}
	return &ack, nil
}
