package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qingchang/notchbridge/internal/pending"
)

// Resource URIs. Stats and history live in the display process's own
// storage; this process can only say so.
const (
	statsURI   = "notch://notifications/stats"
	historyURI = "notch://notifications/history"
	pendingURI = "notch://actions/pending"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(statsURI, "Session statistics",
		mcp.WithResourceDescription("Notification statistics for the current session"),
		mcp.WithMIMEType("application/json"),
	), s.displayOnlyResource(statsURI))

	s.mcp.AddResource(mcp.NewResource(historyURI, "Notification history",
		mcp.WithResourceDescription("Recently displayed notifications"),
		mcp.WithMIMEType("application/json"),
	), s.displayOnlyResource(historyURI))

	s.mcp.AddResource(mcp.NewResource(pendingURI, "Pending actions",
		mcp.WithResourceDescription("Actionable notifications still waiting for a user choice, newest first"),
		mcp.WithMIMEType("application/json"),
	), s.readPendingActions)
}

// displayOnlyResource answers with an explicit error payload instead of a
// protocol error: the data exists, just not in this process.
func (s *Server) displayOnlyResource(uri string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload, _ := json.Marshal(map[string]string{
			"error": "only available inside the display process",
		})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	}
}

func (s *Server) readPendingActions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	recs, err := s.store.ListPending()
	if err != nil {
		return nil, fmt.Errorf("listing pending actions: %w", err)
	}
	if recs == nil {
		recs = []pending.Record{}
	}

	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encoding pending actions: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      pendingURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// notifyPendingChanged tells RPC-side subscribers that the pending-actions
// resource changed. Best effort; a client without subscriptions ignores it.
func (s *Server) notifyPendingChanged() {
	s.mcp.SendNotificationToAllClients("notifications/resources/updated", map[string]any{
		"uri": pendingURI,
	})
}
