// Package cli implements golfctl, the operator tool for golf servers.
//
// Log commands (replay, export, import, recover) open the event log and
// cache named by the GOLF_* environment, the same settings the server
// reads. Server commands (health, show, watch) talk to a running server
// over HTTP.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/golfcards/internal/config"
	"github.com/mcoot/golfcards/internal/factory"
)

var (
	cfg    *Config
	client *Client
)

// openApp wires the storage-backed app for log commands
var openApp = func() (*factory.App, error) {
	appCfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, _ := appCfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: max(level, slog.LevelWarn)}))
	return factory.New(appCfg, logger)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "golfctl",
		Short: "Operator tool for the golf card game server",
		Long: `golfctl inspects and repairs golf games.

Log commands read the event log directly, configured through the same
GOLF_* environment variables as the server:

  replay   rebuild a game from its events and print the result
  export   write a game's events in wire form
  import   append exported events under a fresh game id
  recover  rebuild the state cache for every active game

Server commands talk to a running server over HTTP:

  health   check a server
  show     print a game's public view
  watch    stream a game's live view`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, cfg.PlayerID)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: GOLFCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.PlayerID, "player", cfg.PlayerID, "Player id sent as X-Player-ID (env: GOLFCTL_PLAYER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Log commands
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newRecoverCmd())

	// Server commands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
