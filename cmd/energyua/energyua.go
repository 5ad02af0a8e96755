package main

import (
	"os"

	"github.com/clambin/energyua-monitor/internal/cmd/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
