package main

import (
	"os"

	"go-image-restorer/cmd/restore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
