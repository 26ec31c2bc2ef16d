package core

import (
	"fmt"
	"os"

	"github.com/josephlewis42/cicada/core/env"
)

// ReentryEnv names the builtin a re-executed shell should run. The shell sets
// it when a builtin appears in a pipeline, so the builtin gets its own process
// like any other stage.
const ReentryEnv = "CICADA_BUILTIN_REENTRY"

// Reentry runs the builtin requested through ReentryEnv, if any, and reports
// its status. Binaries embedding the shell must call it before anything else
// and exit with the status when ok is set.
func Reentry() (status int, ok bool) {
	name, ok := os.LookupEnv(ReentryEnv)
	if !ok {
		return 0, false
	}
	os.Unsetenv(ReentryEnv)

	builtin, found := Lookup(name)
	if !found {
		fmt.Fprintf(os.Stderr, "cicada: %s: not a builtin\n", name)
		return StatusNotFound, true
	}

	// The parent sets $PWD to the directory the child starts in.
	environ := env.NewMapEnvFromEnvList(os.Environ())
	ctx, err := NewContext(environ, "", Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cicada: %v\n", err)
		return StatusCannotExecute, true
	}

	args := os.Args
	if len(args) == 0 {
		args = []string{name}
	}
	return builtin.Main(ctx, args), true
}
