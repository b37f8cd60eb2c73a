package commands

import (
	"github.com/spf13/cobra"

	"provinode/scan-core/internal/app"
)

var (
	home string
	wire *app.Wire
)

// Execute builds the root command and runs it.
func Execute() error {
	root := &cobra.Command{
		Use:   "scanctl",
		Short: "Pair with a desktop peer and run room-scanning capture sessions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.NewWire(app.Config{Home: home})
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config and session-package root (default ~/.scan-core)")

	root.AddCommand(pairCmd(), captureCmd(), exportCmd(), statusCmd(), trustCmd(), runCmd())
	return root.Execute()
}
