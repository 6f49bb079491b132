package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/hook"
	"github.com/qingchang/notchbridge/internal/ingest"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Translate an agent hook event from stdin into a notification",
	Long: `Reads one JSON hook event from stdin and forwards the matching
notification to the display process. Wire this command into the agent
runtime's hook configuration for PreToolUse, PostToolUse, Stop,
Notification, SessionStart, UserPromptSubmit and PreCompact.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := hook.New(ingest.NewClient(cfg.Socket))
		return h.Process(os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
