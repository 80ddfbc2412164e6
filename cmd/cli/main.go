// Package main is the entry point for the ocpi-cost CLI.
package main

import (
	"os"

	"ocpi-cost/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
