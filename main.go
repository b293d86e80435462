package main

import (
	"os"

	"github.com/avmux/avmux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
