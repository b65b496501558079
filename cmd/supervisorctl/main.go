package main

import (
	"os"

	"github.com/masa-finance/liveness-supervisor/cmd/supervisorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
