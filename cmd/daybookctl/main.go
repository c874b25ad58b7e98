// Package main is the entry point for the daybookctl operator CLI.
package main

import (
	"os"

	"daybook/cmd/daybookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
