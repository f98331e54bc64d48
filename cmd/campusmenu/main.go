// Package main is the entry point for the campusmenu CLI.
package main

import (
	"os"

	"github.com/jmylchreest/campusmenu/cmd/campusmenu/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
