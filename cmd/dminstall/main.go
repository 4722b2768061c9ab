// Package main is the dminstall command.
package main

import (
	"os"

	"github.com/desktopmate-tools/dminstall/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
