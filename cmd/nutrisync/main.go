package main

import (
	"os"

	"github.com/amr/nutrisync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
