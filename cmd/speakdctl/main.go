package main

import (
	"os"

	"github.com/msto63/speakd/cmd/speakdctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
