package main

import (
	"os"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
