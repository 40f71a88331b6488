package main

import (
	"os"

	"github.com/plgd-dev/coaps/cmd/coaps-client/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
