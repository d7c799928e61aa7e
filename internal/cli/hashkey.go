package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobbyd/lobbyd/internal/auth"
)

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Hash an admin key for ADMIN_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
