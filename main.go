package main

import (
	"os"

	"github.com/salesagent/salesagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
