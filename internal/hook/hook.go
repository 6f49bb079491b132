// Package hook translates agent hook events, read as JSON from stdin, into
// notifications for the display process. It is the fire-and-forget side of
// the bridge: a dead socket is logged and swallowed so the agent session
// never fails because the notch app is closed.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qingchang/notchbridge/internal/notification"
)

// Event is one hook event as delivered by the agent runtime. Both
// PascalCase and snake_case event names occur in the wild.
type Event struct {
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolOutput    json.RawMessage `json:"tool_output"`
	Error         string          `json:"error"`
}

// Sender delivers one envelope to the display process.
type Sender interface {
	Send(n *notification.Notification) (*notification.Ack, error)
}

// Hook processes agent hook events for one project.
type Hook struct {
	sender       Sender
	projectPath  string
	projectName  string
	sessionStart time.Time
}

// New creates a Hook. The project root comes from $CLAUDE_PROJECT_DIR,
// falling back to the working directory.
func New(sender Sender) *Hook {
	projectPath := os.Getenv("CLAUDE_PROJECT_DIR")
	if projectPath == "" {
		projectPath, _ = os.Getwd()
	}
	return &Hook{
		sender:       sender,
		projectPath:  projectPath,
		projectName:  filepath.Base(projectPath),
		sessionStart: time.Now(),
	}
}

// Process reads a single event from r and emits the matching notification,
// if the event warrants one.
func (h *Hook) Process(r io.Reader) error {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return fmt.Errorf("decoding hook event: %w", err)
	}

	switch ev.HookEventName {
	case "PreToolUse", "pre_tool_use":
		h.preToolUse(&ev)
	case "PostToolUse", "post_tool_use":
		h.postToolUse(&ev)
	case "Stop", "stop":
		h.notify("Session finished", "The agent completed all tasks", notification.KindCelebration, 2, nil)
	case "Notification", "notification":
		h.notify("Response needed", "The agent is waiting for your input", notification.KindReminder, 3, nil)
	case "SessionStart", "session_start":
		h.notify("Session started", "Agent session is up", notification.KindAI, 0, map[string]string{
			"event_type": "session_start",
		})
	case "UserPromptSubmit", "user_prompt_submit":
		h.userPromptSubmit(&ev)
	case "PreCompact", "pre_compact":
		h.notify("Compacting context", "Trimming conversation history", notification.KindInfo, 0, nil)
	default:
		slog.Debug("unhandled hook event", "event", ev.HookEventName)
	}
	return nil
}

func (h *Hook) preToolUse(ev *Event) {
	input := decodeInput(ev.ToolInput)

	switch ev.ToolName {
	case "Edit", "Write":
		file, _ := input["file_path"].(string)
		if file == "" {
			return
		}
		h.notifyEdit(ev.ToolName, file, input)

	case "MultiEdit":
		file, _ := input["file_path"].(string)
		if file == "" {
			return
		}
		msg := h.relPath(file)
		if edits, ok := input["edits"].([]any); ok && len(edits) > 0 {
			msg = fmt.Sprintf("%s (%d edits)", msg, len(edits))
		}
		h.notify("Batch edit", msg, notification.KindToolUse, 2, nil)

	case "Bash":
		command, _ := input["command"].(string)
		h.bashCommand(command)

	case "Task":
		agent, _ := input["subagent_type"].(string)
		if agent == "" {
			agent = "general-purpose"
		}
		desc, _ := input["description"].(string)
		if desc == "" {
			desc = "Working on a task"
		}
		h.notify("Agent started", fmt.Sprintf("%s (%s)", desc, agent), notification.KindAI, 2, nil)

	case "Read", "Grep", "Glob", "LS":
		target := readTarget(ev.ToolName, input)
		if target == "" {
			return
		}
		h.notify(ev.ToolName, truncate(target, 100), notification.KindInfo, 0, nil)

	case "WebFetch", "WebSearch":
		target, _ := input["url"].(string)
		if target == "" {
			target, _ = input["query"].(string)
		}
		h.notify("Network access", truncate(target, 100), notification.KindDownload, 1, nil)

	case "TodoWrite":
		todos, ok := input["todos"].([]any)
		if !ok {
			return
		}
		completed := 0
		for _, item := range todos {
			if m, ok := item.(map[string]any); ok && m["status"] == "completed" {
				completed++
			}
		}
		h.notify("Task list updated", fmt.Sprintf("%d/%d complete", completed, len(todos)), notification.KindReminder, 1, nil)
	}
}

func (h *Hook) postToolUse(ev *Event) {
	if ev.Error != "" {
		h.notify("Tool failed",
			fmt.Sprintf("%s: %s", ev.ToolName, truncate(ev.Error, 100)),
			notification.KindError, 3, map[string]string{
				"event_type": "tool_error",
				"tool_name":  ev.ToolName,
			})
		return
	}

	input := decodeInput(ev.ToolInput)

	switch ev.ToolName {
	case "Edit", "Write", "MultiEdit":
		file, _ := input["file_path"].(string)
		if file == "" {
			return
		}
		h.notify("Edit complete", h.relPath(file), notification.KindSuccess, 0, nil)

	case "Task":
		h.notify("Agent finished", "Task complete", notification.KindSuccess, 1, nil)

	case "Bash":
		var output string
		if err := json.Unmarshal(ev.ToolOutput, &output); err != nil || output == "" {
			return
		}
		lines := strings.SplitN(strings.TrimSpace(output), "\n", 3)
		preview := truncate(strings.Join(lines[:min(len(lines), 2)], " | "), 100)
		if preview != "" {
			h.notify("Command finished", preview, notification.KindSuccess, 0, nil)
		}
	}
}

func (h *Hook) userPromptSubmit(ev *Event) {
	var prompt string
	if err := json.Unmarshal(ev.ToolInput, &prompt); err != nil || prompt == "" {
		return
	}

	// Only prompts that look like yes/no decisions warrant a notch nudge.
	lower := strings.ToLower(prompt)
	for _, hint := range []string{"allow", "deny", "accept", "reject", "yes", "no"} {
		if strings.Contains(lower, hint) {
			h.notify("Response needed", truncate(prompt, 200), notification.KindConfirmation, 3, map[string]string{
				"prompt_type": "user_confirmation",
			})
			return
		}
	}
}

// bashCommand classifies a shell command into a kind, priority, and
// whether it is worth a notification at all.
func (h *Hook) bashCommand(command string) {
	if command == "" {
		return
	}

	priority := 1
	label := "Running command"
	switch {
	case strings.HasPrefix(command, "git "):
		priority, label = 2, "Git"
	case strings.HasPrefix(command, "npm "), strings.HasPrefix(command, "yarn "), strings.HasPrefix(command, "pnpm "):
		priority, label = 2, "Package manager"
	case strings.HasPrefix(command, "rm "), strings.HasPrefix(command, "mv "):
		priority, label = 2, "Destructive command"
	case strings.HasPrefix(command, "docker "), strings.HasPrefix(command, "kubectl "):
		priority, label = 2, "Containers"
	case strings.HasPrefix(command, "make "), strings.HasPrefix(command, "cargo "), strings.HasPrefix(command, "go "):
		label = "Build"
	case strings.HasPrefix(command, "pytest"), strings.HasPrefix(command, "jest"), strings.HasPrefix(command, "test"):
		label = "Tests"
	case strings.HasPrefix(command, "echo"), strings.HasPrefix(command, "ls"),
		strings.HasPrefix(command, "pwd"), strings.HasPrefix(command, "date"):
		return // noise
	}

	h.notify(label, truncate(command, 80), notification.KindToolUse, priority, nil)
}

// notifyEdit announces an upcoming file edit, with a diff preview when the
// inputs allow one to be computed.
func (h *Hook) notifyEdit(tool, file string, input map[string]any) {
	oldText, _ := input["old_string"].(string)
	newText, _ := input["new_string"].(string)
	if tool == "Write" {
		oldText = ""
		newText, _ = input["content"].(string)
	}

	metadata := map[string]string{
		"tool_name":  tool,
		"event_type": "PreToolUse",
		"file_path":  file,
	}

	msg := h.relPath(file)
	if preview, err := h.writeDiffPreview(file, oldText, newText); err == nil && preview != nil {
		msg = fmt.Sprintf("%s (+%d -%d)", msg, preview.Added, preview.Removed)
		metadata["diff_path"] = preview.Path
		metadata["is_preview"] = "true"
	}

	h.notify("About to edit", msg, notification.KindToolUse, 2, metadata)
}

func (h *Hook) notify(title, message, kind string, priority int, extra map[string]string) {
	metadata := map[string]string{
		"source":           "claude-code",
		"project":          h.projectName,
		"project_path":     h.projectPath,
		"session_duration": fmt.Sprintf("%.1f", time.Since(h.sessionStart).Seconds()),
	}
	for k, v := range extra {
		metadata[k] = v
	}

	ack, err := h.sender.Send(&notification.Notification{
		Title:    fmt.Sprintf("[%s] %s", h.projectName, title),
		Message:  message,
		Type:     kind,
		Priority: priority,
		Metadata: metadata,
	})
	if err != nil {
		slog.Warn("sending hook notification", "title", title, "error", err)
		return
	}
	if !ack.Success {
		slog.Warn("hook notification rejected", "title", title, "reason", ack.Error)
	}
}

func (h *Hook) relPath(file string) string {
	if rel, err := filepath.Rel(h.projectPath, file); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return file
}

func decodeInput(raw json.RawMessage) map[string]any {
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return map[string]any{}
	}
	return m
}

func readTarget(tool string, input map[string]any) string {
	key := map[string]string{
		"Read": "file_path",
		"Grep": "pattern",
		"Glob": "pattern",
		"LS":   "path",
	}[tool]
	target, _ := input[key].(string)
	return target
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
