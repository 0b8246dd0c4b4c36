// Package main provides the entry point for the sprintloop CLI.
package main

import (
	"os"

	"github.com/sprintloop/sprintloop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
