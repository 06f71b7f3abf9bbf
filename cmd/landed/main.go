package main

import (
	"os"

	"github.com/shipgrid/backend-import/cmd/landed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
