package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/toolserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP tools and resources over stdio",
	Long: `Runs the agent-facing MCP server on stdin/stdout. Register this command
as an MCP server in the agent runtime; it exposes the notification tools
(show_progress, show_result, ask_confirmation, show_actionable_result)
and the pending-actions resource.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := toolserver.New(cfg, store)
		if err != nil {
			return err
		}
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("serving MCP: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
