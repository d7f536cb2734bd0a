package main

import (
	"fmt"
	"os"

	"github.com/illusionfield/scssc/cmd"
)

func main() {
	if err := cmd.RootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
