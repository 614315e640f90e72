package main

import (
	"os"

	"stockpipe/cmd/stockpipe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
