package main

import (
	"os"

	"provinode/scan-core/cmd/scanctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
