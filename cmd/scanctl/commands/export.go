package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/recorder"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id> <destination>",
		Short: "Copy a finalized session package to destination, byte-identical",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := domaintypes.SortableID(args[0])
			destination := args[1]

			rec, err := recorder.New(filepath.Join(wire.Home, "sessions"), sessionID, "")
			if err != nil {
				return err
			}
			dir, err := rec.Export(context.Background(), destination)
			if err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", dir)
			return nil
		},
	}
	return cmd
}
