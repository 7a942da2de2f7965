package main

import (
	"os"

	"github.com/RD1707/project-recall-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
