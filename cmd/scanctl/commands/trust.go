package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/scanerr"
)

func trustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect and manage trusted peer records",
	}
	cmd.AddCommand(trustListCmd(), trustRevokeCmd())
	return cmd
}

func trustListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all known trust records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := wire.Trust.All(context.Background())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no trust records")
				return nil
			}
			for _, r := range records {
				fmt.Printf("%s\t%s\t%s\t%s\n", r.PeerDeviceID, r.Status, r.PeerDisplayName, r.PeerCertFingerprintSHA256)
			}
			return nil
		},
	}
}

func trustRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <peer-device-id>",
		Short: "Revoke a previously trusted peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			peerID := domaintypes.SortableID(args[0])

			records, err := wire.Trust.All(ctx)
			if err != nil {
				return err
			}
			for _, r := range records {
				if r.PeerDeviceID == peerID {
					r.Status = domaintypes.TrustStatusRevoked
					if err := wire.Trust.Upsert(ctx, r); err != nil {
						return err
					}
					fmt.Printf("Revoked %s\n", peerID)
					return nil
				}
			}
			return scanerr.Newf(scanerr.KindUntrustedEndpoint, "trust: no record for peer device id %s", peerID)
		},
	}
}
