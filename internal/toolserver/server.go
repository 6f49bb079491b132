// Package toolserver exposes the notchbridge tools and resources to an MCP
// client over stdio. The interactive tool is the bridge's reason to exist:
// it files a pending-action record, relays an actionable notification to
// the display process, and blocks until the human's choice lands back in
// the store or the wait budget runs out.
package toolserver

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qingchang/notchbridge/internal/config"
	"github.com/qingchang/notchbridge/internal/ingest"
	"github.com/qingchang/notchbridge/internal/notification"
	"github.com/qingchang/notchbridge/internal/pending"
)

// Version is stamped via ldflags.
var Version = "dev"

// Server wraps the MCP server together with its collaborators.
type Server struct {
	mcp          *server.MCPServer
	store        *pending.Store
	pollInterval time.Duration
	maxPolls     int

	// seams for tests
	send  func(n *notification.Notification) (*notification.Ack, error)
	newID func() string
}

// New builds the tool/resource server from the given configuration.
func New(cfg *config.Config, store *pending.Store) (*Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	interval, err := cfg.PollInterval()
	if err != nil {
		return nil, err
	}

	client := ingest.NewClient(cfg.Socket)
	s := &Server{
		mcp: server.NewMCPServer("notchbridge", Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(true, true),
			server.WithRecovery(),
		),
		store:        store,
		pollInterval: interval,
		maxPolls:     cfg.Wait.MaxPolls,
		send:         client.Send,
		newID:        uuid.NewString,
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// ServeStdio runs the MCP protocol loop over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
