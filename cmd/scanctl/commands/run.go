package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"provinode/scan-core/internal/app"
	"provinode/scan-core/internal/controller"
)

func runCmd() *cobra.Command {
	var (
		host        string
		port        int
		fingerprint string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive pair/capture/export from SCAN_* environment variables, for headless invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.LoadBootstrapEnv()
			endpoint := controller.ResolvedEndpoint{
				Host:                   host,
				Port:                   port,
				PairingCertFingerprint: fingerprint,
			}
			if err := app.Run(context.Background(), wire, env, endpoint); err != nil {
				return err
			}
			fmt.Println("run: bootstrap sequence complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "desktop peer host for auto-capture (empty falls back to local-only recording)")
	cmd.Flags().IntVar(&port, "port", 7447, "desktop peer transport port for auto-capture")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "desktop peer certificate fingerprint (sha256 hex)")
	return cmd
}
