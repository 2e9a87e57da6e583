package main

import (
	"os"

	"github.com/sovtrack/sovtrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
