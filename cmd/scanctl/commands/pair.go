package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func pairCmd() *cobra.Command {
	var qrPath string
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Validate and confirm a scanned desktop pairing QR payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readQRPayload(qrPath)
			if err != nil {
				return err
			}
			rec, err := wire.Controller.Pair(context.Background(), payload)
			if err != nil {
				return err
			}
			fmt.Printf("Paired with %s (fingerprint %s)\n", rec.PeerDeviceID, rec.PeerCertFingerprintSHA256)
			return nil
		},
	}
	cmd.Flags().StringVar(&qrPath, "qr", "-", "path to the scanned QR payload JSON, or - for stdin")
	return cmd
}

func readQRPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
