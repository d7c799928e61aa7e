package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lobbyctl",
		Short: "CLI tool for the lobby directory server",
		Long: `lobbyctl is a CLI tool for interacting with a lobby directory server.

It supports the read-only JSON API (rooms, players, health), privileged admin
operations, and a live websocket watch of the replicated directory.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, cfg.AdminKey)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: LOBBYD_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminKey, "admin-key", cfg.AdminKey, "Admin key for privileged operations (env: LOBBYD_ADMIN_KEY)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newRoomsCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newHashKeyCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
