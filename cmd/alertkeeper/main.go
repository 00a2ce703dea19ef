package main

import (
	"os"

	"github.com/solatis/alertkeeper/cmd/alertkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
