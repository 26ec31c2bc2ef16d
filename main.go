package main

import (
	"os"

	"github.com/josephlewis42/cicada/cmd"
	"github.com/josephlewis42/cicada/core"
)

func main() {
	// Builtins run in a pipeline re-execute this binary.
	if status, ok := core.Reentry(); ok {
		os.Exit(status)
	}

	os.Exit(cmd.Execute())
}
