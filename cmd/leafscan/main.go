package main

import (
	"os"

	"LeafScan/cmd/leafscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
