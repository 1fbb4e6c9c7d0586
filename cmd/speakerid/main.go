// Package main provides the speakerid CLI tool.
//
// Usage:
//
//	speakerid [flags] <command> [args]
//
// Commands:
//
//	identify  - Identify speakers in a meeting recording
//	health    - Check embedding service availability
//	profiles  - Inspect the speaker profile database
//	config    - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.speakerid/
//	Use 'speakerid config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/voznote/speakerid/cmd/speakerid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
