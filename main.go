package main

import (
	"os"

	"github.com/spigell/prepscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
