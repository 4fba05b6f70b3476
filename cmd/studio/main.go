package main

import (
	"os"

	"github.com/divaparadises/studio/cmd/studio/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
