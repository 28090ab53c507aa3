package main

import (
	"os"

	"github.com/kartoza/cplus-plugin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
