package main

import (
	"os"

	"github.com/conneroisu/runloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
