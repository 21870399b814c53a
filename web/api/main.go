package main

import (
	"os"

	"github.com/cx-miguel-neiva/crypto-analysis/cmd"
)

// The API binary is the serve command of the CLI, so it shares its config
// file, environment and flag handling.
func main() {
	args := append([]string{"serve"}, os.Args[1:]...)
	if err := cmd.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
