package main

import (
	"os"

	"github.com/olynch/presentations/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
