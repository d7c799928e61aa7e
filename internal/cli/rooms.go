package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	roomsCmd := &cobra.Command{
		Use:   "rooms",
		Short: "Inspect and manage rooms",
	}

	roomsCmd.AddCommand(newRoomsListCmd())
	roomsCmd.AddCommand(newRoomsGetCmd())
	roomsCmd.AddCommand(newRoomsDestroyCmd())

	return roomsCmd
}

func newRoomsListCmd() *cobra.Command {
	var includeHidden bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rooms"
			if includeHidden {
				path += "?include_hidden=true"
			}

			var result []Room
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeHidden, "all", false, "Include hidden rooms")
	return cmd
}

func newRoomsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room-id>",
		Short: "Show a room and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomDetail
			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <room-id>",
		Short: "Forcibly destroy a room (requires admin key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AdminKey == "" {
				return fmt.Errorf("admin key required (--admin-key or LOBBYD_ADMIN_KEY)")
			}
			if err := client.Delete("/api/v1/admin/rooms/" + args[0]); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("room destroyed")
			return nil
		},
	}
}
