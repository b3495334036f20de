// Package main is the entry point for the banksync CLI.
package main

import (
	"os"

	"github.com/Carlavier/ai-cfo-mvp/cmd/banksync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
