package main

import (
	"os"

	"github.com/uswizard/backend/cmd/wizard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
