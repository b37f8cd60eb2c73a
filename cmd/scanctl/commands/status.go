package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print this device's identity and current controller state",
		RunE: func(cmd *cobra.Command, args []string) error {
			material, err := wire.Identity.Material(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("device_id: %s\n", material.DeviceID)
			fmt.Printf("cert_fingerprint_sha256: %s\n", material.CertFingerprintSHA256)
			fmt.Printf("controller_state: %s\n", wire.Controller.State())
			return nil
		},
	}
	return cmd
}
