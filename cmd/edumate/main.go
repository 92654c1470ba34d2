// Package main provides the entry point for the edumate CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/edumate/cmd/edumate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
