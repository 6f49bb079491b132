package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qingchang/notchbridge/internal/notification"
)

// TimeoutResult is returned by show_actionable_result when no choice
// arrived within the wait budget. It is a first-class result, not an
// error: callers must be able to tell "nobody clicked" from a transport
// failure.
const TimeoutResult = "timeout"

const maxActionButtons = 3

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("show_progress",
		mcp.WithDescription("Show a progress notification in the notch."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Notification title")),
		mcp.WithNumber("progress", mcp.Required(), mcp.Description("Progress between 0 and 1")),
		mcp.WithBoolean("cancellable", mcp.Description("Whether the operation can be cancelled")),
	), s.showProgress)

	s.mcp.AddTool(mcp.NewTool("show_result",
		mcp.WithDescription("Show a result notification in the notch."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Notification title")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Notification kind: success, error, warning or info")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Notification body")),
	), s.showResult)

	s.mcp.AddTool(mcp.NewTool("ask_confirmation",
		mcp.WithDescription("Show a confirmation prompt in the notch. The answer is handled on the display side."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to present")),
		mcp.WithArray("options", mcp.Required(), mcp.Description("Options to offer"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.askConfirmation)

	s.mcp.AddTool(mcp.NewTool("show_actionable_result",
		mcp.WithDescription("Show a notification with action buttons and block until the user picks one or the wait times out. Returns the chosen label, or \"timeout\"."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Notification title")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Notification body")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Notification kind: success, error, warning or info")),
		mcp.WithArray("actions", mcp.Required(), mcp.Description("Button labels, one to three"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.showActionableResult)
}

func (s *Server) showProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	progress, err := req.RequireFloat("progress")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if progress < 0 || progress > 1 {
		return mcp.NewToolResultError(fmt.Sprintf("progress must be between 0 and 1, got %v", progress)), nil
	}

	metadata := map[string]string{"progress": fmt.Sprintf("%.2f", progress)}
	if req.GetBool("cancellable", false) {
		metadata["cancellable"] = "true"
	}

	s.deliver(&notification.Notification{
		Title:    title,
		Message:  fmt.Sprintf("%d%%", int(progress*100)),
		Type:     notification.KindInfo,
		Priority: 1,
		Metadata: metadata,
	})
	return mcp.NewToolResultText("progress shown"), nil
}

func (s *Server) showResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.deliver(&notification.Notification{
		Title:    title,
		Message:  message,
		Type:     kind,
		Priority: 1,
	})
	return mcp.NewToolResultText("notification sent"), nil
}

func (s *Server) askConfirmation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	options := req.GetStringSlice("options", nil)
	if len(options) == 0 {
		return mcp.NewToolResultError("options must not be empty"), nil
	}

	s.deliver(&notification.Notification{
		Title:    question,
		Message:  strings.Join(options, " / "),
		Type:     notification.KindConfirmation,
		Priority: 2,
		Metadata: map[string]string{"options": strings.Join(options, ",")},
	})
	return mcp.NewToolResultText("confirmation shown"), nil
}

func (s *Server) showActionableResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actions := req.GetStringSlice("actions", nil)
	if len(actions) == 0 {
		return mcp.NewToolResultError("actions must contain at least one label"), nil
	}
	if len(actions) > maxActionButtons {
		return mcp.NewToolResultError(fmt.Sprintf("actions must contain at most %d labels, got %d", maxActionButtons, len(actions))), nil
	}

	id := s.newID()
	if err := s.store.Create(id, title, message, kind, actions); err != nil {
		return nil, fmt.Errorf("recording pending action: %w", err)
	}

	buttons := make([]notification.Action, 0, len(actions))
	for _, label := range actions {
		buttons = append(buttons, notification.Action{
			Label:  label,
			Action: notification.ActionToken(id, label),
		})
	}
	s.deliver(&notification.Notification{
		Title:    title,
		Message:  message,
		Type:     kind,
		Priority: 2,
		Actions:  buttons,
		Metadata: map[string]string{"correlation_id": id},
	})

	choice, err := s.waitForChoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(choice), nil
}

// waitForChoice polls the store once per interval until a choice appears
// or the poll budget is exhausted. Either way the record is removed before
// returning; a tap that lands after our removal re-creates the record via
// the store's upsert rule and is never consumed.
func (s *Server) waitForChoice(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for i := 0; i < s.maxPolls; i++ {
		select {
		case <-ctx.Done():
			if err := s.store.Remove(id); err != nil {
				slog.Warn("removing pending action after cancellation", "id", id, "error", err)
			}
			return "", ctx.Err()
		case <-ticker.C:
		}

		choice, ok, err := s.store.GetChoice(id)
		if err != nil {
			slog.Warn("polling pending action", "id", id, "error", err)
			continue
		}
		if ok {
			if err := s.store.Remove(id); err != nil {
				slog.Warn("removing resolved pending action", "id", id, "error", err)
			}
			s.notifyPendingChanged()
			return choice, nil
		}
	}

	if err := s.store.Remove(id); err != nil {
		slog.Warn("removing timed-out pending action", "id", id, "error", err)
	}
	s.notifyPendingChanged()
	return TimeoutResult, nil
}

// deliver relays an envelope to the display process, fire and forget. A
// delivery failure is logged, not returned: the display process being down
// is not a tool error, the caller will simply see a timeout.
func (s *Server) deliver(n *notification.Notification) {
	ack, err := s.send(n)
	if err != nil {
		slog.Warn("delivering notification", "title", n.Title, "error", err)
		return
	}
	if !ack.Success {
		slog.Warn("display process rejected notification", "title", n.Title, "reason", ack.Error)
	}
}
