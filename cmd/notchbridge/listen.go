package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/ingest"
	"github.com/qingchang/notchbridge/internal/notification"
	"github.com/qingchang/notchbridge/internal/paths"
	"github.com/qingchang/notchbridge/internal/pending"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the notification ingestion listener",
	Long: `Listens on the ingestion socket and logs every received envelope.

This is the transport end of the display process. The real notch app
embeds the same server; this command stands in for it during development,
so hook and tool traffic can be observed and answered with "respond".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := paths.EnsureDir(filepath.Dir(cfg.Socket)); err != nil {
			return fmt.Errorf("creating socket dir: %w", err)
		}

		srv := ingest.NewServer(cfg.Socket, logNotification)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
		slog.Info("listening", "socket", cfg.Socket)

		// Mirror the display app: watch the pending store so choices and
		// new records show up without polling.
		watcher, err := pending.NewWatcher(store.Path(), logPendingChange)
		if err != nil {
			slog.Warn("pending store watcher unavailable", "error", err)
		} else {
			defer watcher.Close()
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		return nil
	},
}

// logNotification is the stand-in display pipeline: it prints the envelope
// and, for actionable ones, the correlation IDs an operator needs in order
// to respond.
func logNotification(n *notification.Notification) {
	slog.Info("notification",
		"title", n.Title,
		"type", n.Type,
		"priority", n.Priority,
		"message", n.Message,
	)
	for _, action := range n.Actions {
		if id, label, ok := notification.ParseActionToken(action.Action); ok {
			slog.Info("action button", "label", action.Label, "correlation_id", id, "choice", label)
		}
	}
}

func logPendingChange() {
	recs, err := store.ListPending()
	if err != nil {
		slog.Warn("reading pending store after change", "error", err)
		return
	}
	slog.Debug("pending store changed", "pending", len(recs))
}

func init() {
	rootCmd.AddCommand(listenCmd)
}
