package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qingchang/notchbridge/internal/config"
	"github.com/qingchang/notchbridge/internal/pending"
	"github.com/qingchang/notchbridge/internal/toolserver"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfg        *config.Config
	store      *pending.Store
	globalOpts struct {
		verbose    bool
		configPath string
	}
)

var rootCmd = &cobra.Command{
	Use:   "notchbridge",
	Short: "Actionable-notification bridge for the notch display app",
	Long: `notchbridge connects an AI agent session to the notch notification app.

It serves MCP tools over stdio (serve), receives notification envelopes on
the display process's Unix socket (listen), and translates agent hook
events into notifications (hook). The two processes coordinate pending
action buttons through a shared, file-locked JSON store.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		if globalOpts.configPath != "" {
			cfg, err = config.LoadFrom(globalOpts.configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		store = pending.NewStore(cfg.Store.Path, cfg.Store.LockPath)
		toolserver.Version = version
		return nil
	},
}

// setupLogger routes diagnostics to stderr; stdout belongs to the MCP
// protocol when serving.
func setupLogger() {
	level := slog.LevelInfo
	if globalOpts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "", "path to config.toml (default $NOTCHBRIDGE_HOME/config.toml)")
}
