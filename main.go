package main

import (
	"os"

	"github.com/evlife/evcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
