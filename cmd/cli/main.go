// Package main is the entry point for the plan-pricing CLI.
package main

import (
	"os"

	"plan-pricing/cmd/cli/cmd"
	"plan-pricing/internal/logging"
)

func main() {
	defer logging.Sync()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
