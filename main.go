package main

import (
	"os"

	"github.com/jandubois/diffcfg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
