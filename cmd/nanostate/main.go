// This is the main entry point for the nanostate CLI.
// Build with: go build -o bin/nanostate ./cmd/nanostate
// Usage: nanostate replay <scenario.yaml>
package main

import (
	"os"
)

func main() {
	if err := NewCLI(os.Stdout, os.Stderr).Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
