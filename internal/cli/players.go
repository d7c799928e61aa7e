package cli

import (
	"github.com/spf13/cobra"
)

func newPlayersCmd() *cobra.Command {
	playersCmd := &cobra.Command{
		Use:   "players",
		Short: "Inspect connected players",
	}

	playersCmd.AddCommand(newPlayersListCmd())

	return playersCmd
}

func newPlayersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered players",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Player
			if err := client.Get("/api/v1/players", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
