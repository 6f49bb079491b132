package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/ingest"
	"github.com/qingchang/notchbridge/internal/notification"
)

var sendOpts struct {
	title    string
	message  string
	kind     string
	priority int
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a one-off notification to the display process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ack, err := ingest.NewClient(cfg.Socket).Send(&notification.Notification{
			Title:    sendOpts.title,
			Message:  sendOpts.message,
			Type:     sendOpts.kind,
			Priority: sendOpts.priority,
		})
		if err != nil {
			return err
		}
		if !ack.Success {
			return fmt.Errorf("display process rejected notification: %s", ack.Error)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendOpts.title, "title", "", "notification title")
	sendCmd.Flags().StringVar(&sendOpts.message, "message", "", "notification body")
	sendCmd.Flags().StringVar(&sendOpts.kind, "type", notification.KindInfo, "notification kind")
	sendCmd.Flags().IntVar(&sendOpts.priority, "priority", 1, "notification priority")
	sendCmd.MarkFlagRequired("title")   //nolint: errcheck
	sendCmd.MarkFlagRequired("message") //nolint: errcheck
	rootCmd.AddCommand(sendCmd)
}
