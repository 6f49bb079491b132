// Package notification defines the wire payload shared by the tool process
// and the display process, plus the opaque action-token format that lets the
// display side report a button tap without understanding tool semantics.
package notification

import (
	"fmt"
	"strings"
)

// Notification kinds understood by the display process.
const (
	KindInfo         = "info"
	KindSuccess      = "success"
	KindError        = "error"
	KindWarning      = "warning"
	KindToolUse      = "tool_use"
	KindAI           = "ai"
	KindReminder     = "reminder"
	KindDownload     = "download"
	KindSync         = "sync"
	KindCelebration  = "celebration"
	KindConfirmation = "confirmation"
)

// Action is a single button attached to a notification. Action carries the
// opaque token the display process echoes back on tap.
type Action struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Style  string `json:"style,omitempty"`
}

// Notification is the envelope sent over the ingestion socket, one JSON
// object per connection.
type Notification struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Type     string            `json:"type"`
	Priority int               `json:"priority"`
	Icon     string            `json:"icon,omitempty"`
	Actions  []Action          `json:"actions,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate reports the first missing required field, if any.
func (n *Notification) Validate() error {
	switch {
	case n.Title == "":
		return fmt.Errorf("missing required field: title")
	case n.Message == "":
		return fmt.Errorf("missing required field: message")
	case n.Type == "":
		return fmt.Errorf("missing required field: type")
	}
	return nil
}

// Ack is the single-line JSON reply written back on the same connection.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// actionTokenTag marks tokens belonging to the pending-action protocol.
const actionTokenTag = "notch_action"

// ActionToken encodes a correlation ID and button label into the opaque
// token carried by an Action.
func ActionToken(correlationID, label string) string {
	return actionTokenTag + ":" + correlationID + ":" + label
}

// ParseActionToken splits an action token back into correlation ID and
// label. Labels may themselves contain colons, so only the first two
// separators are structural.
func ParseActionToken(token string) (correlationID, label string, ok bool) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != actionTokenTag || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
