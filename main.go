package main

import (
	"os"

	"github.com/sfecr/compliagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
