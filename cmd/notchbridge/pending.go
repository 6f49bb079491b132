package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/pending"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print pending actionable notifications as JSON, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := store.ListPending()
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []pending.Record{}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <correlation-id> <label>",
	Short: "Record a user choice for a pending action",
	Long: `Writes the chosen label into the pending-action store, exactly as the
display process does when a notification button is tapped. The waiting
tool call picks the choice up on its next poll.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.SetChoice(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %q for %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(respondCmd)
}
