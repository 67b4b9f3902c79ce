package main

import (
	"os"

	"github.com/quantrack/quantrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
