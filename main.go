package main

import (
	"os"

	"github.com/cx-miguel-neiva/crypto-analysis/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
