package core

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/josephlewis42/cicada/core/jobs"
	"github.com/josephlewis42/cicada/core/shell"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Cd is the cd shell builtin
func Cd(ctx *Context, args []string) int {
	if len(args) > 2 {
		ctx.errorf("%s: too many arguments", args[0])
		return 1
	}

	var target string
	if len(args) == 2 {
		target = args[1]
	}
	if target == "" {
		target = ctx.Home()
		if target == "" {
			ctx.errorf("%s: %v", args[0], ErrNoHome)
			return 1
		}
	}

	printDir := false
	if target == "-" {
		target = ctx.PrevDir()
		if target == "" {
			ctx.errorf("%s: %v", args[0], ErrNoPrev)
			return 1
		}
		printDir = true
	}

	if err := ctx.Chdir(target); err != nil {
		ctx.errorf("%s: %s: %v", args[0], target, unwrapPath(err))
		return 1
	}

	if printDir {
		fmt.Fprintln(ctx.Stdout, ctx.Dir())
	}
	return 0
}

// Pwd prints the current directory.
func Pwd(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])
	cmd.Flags().Bool('L', "print the value of $PWD (default)")
	physical := cmd.Flags().Bool('P', "print the directory with symbolic links resolved")

	return cmd.Run(ctx, args, func(rest []string) int {
		dir := ctx.Dir()
		if *physical {
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				ctx.errorf("%s: %v", args[0], unwrapPath(err))
				return 1
			}
			dir = resolved
		}

		fmt.Fprintln(ctx.Stdout, dir)
		return 0
	})
}

// Exit quits the shell
func Exit(ctx *Context, args []string) int {
	status := ctx.LastStatus()
	switch len(args) {
	case 1:
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			ctx.errorf("%s: %s: numeric argument required", args[0], args[1])
			status = 2
			break
		}
		status = n & 0xff
	default:
		ctx.errorf("%s: too many arguments", args[0])
		return 1
	}

	if ctx.warnedLine != ctx.lines-1 {
		for _, j := range ctx.Jobs.Jobs() {
			if j.Status() == jobs.Stopped {
				ctx.errorf("There are stopped jobs.")
				ctx.warnedLine = ctx.lines
				return 1
			}
		}
	}

	ctx.RequestExit(status)
	return status
}

// Export sets environment variables, or lists them with no arguments.
func Export(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])
	list := cmd.Flags().Bool('p', "list all exported variables")

	return cmd.Run(ctx, args, func(rest []string) int {
		if *list || len(rest) == 0 {
			for _, entry := range ctx.Env.Environ() {
				kv := strings.SplitN(entry, "=", 2)
				fmt.Fprintf(ctx.Stdout, "export %s=%s\n", kv[0], shell.Quote(kv[1]))
			}
			return 0
		}

		status := 0
		for _, arg := range rest {
			name, value, hasValue := strings.Cut(arg, "=")
			if !identifier.MatchString(name) {
				ctx.errorf("%s: `%s': not a valid identifier", args[0], arg)
				status = 1
				continue
			}
			if hasValue {
				ctx.Env.Setenv(name, value)
			}
		}
		return status
	})
}

// Unset removes environment variables.
func Unset(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])
	cmd.Flags().Bool('v', "treat each name as a variable (default)")

	return cmd.Run(ctx, args, func(rest []string) int {
		status := 0
		for _, name := range rest {
			if !identifier.MatchString(name) {
				ctx.errorf("%s: `%s': not a valid identifier", args[0], name)
				status = 1
				continue
			}
			ctx.Env.Unsetenv(name)
		}
		return status
	})
}

// History lists or clears the lines entered this session.
func History(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])
	clearOpt := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(ctx, args, func(rest []string) int {
		if *clearOpt {
			ctx.ClearHistory()
			return 0
		}

		history := ctx.History()
		first := 0
		switch len(rest) {
		case 0:
		case 1:
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 0 {
				ctx.errorf("%s: %s: numeric argument required", args[0], rest[0])
				return 1
			}
			if n < len(history) {
				first = len(history) - n
			}
		default:
			ctx.errorf("%s: too many arguments", args[0])
			return 1
		}

		for i := first; i < len(history); i++ {
			fmt.Fprintf(ctx.Stdout, "% 5d  %s\n", i+1, history[i])
		}
		return 0
	})
}

// Help lists the builtins, or describes those matching the arguments.
func Help(ctx *Context, args []string) int {
	w := ctx.Stdout
	if len(args) < 2 {
		fmt.Fprintf(w, "cicada, version %s\n", Version)
		fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
		fmt.Fprintln(w, "Type `help name' to find out more about the function `name'.")
		fmt.Fprintln(w)

		for _, name := range BuiltinNames() {
			fmt.Fprintf(w, " %-32s%s\n", builtinDocs[name].use, builtinDocs[name].short)
		}
		return 0
	}

	status := 0
	for _, pattern := range args[1:] {
		matched := false
		for _, name := range BuiltinNames() {
			ok, _ := path.Match(pattern, name)
			if !ok && !strings.HasPrefix(name, pattern) {
				continue
			}
			matched = true
			fmt.Fprintf(w, "%s: %s\n    %s\n", name, builtinDocs[name].use, builtinDocs[name].short)
		}
		if !matched {
			ctx.errorf("%s: no help topics match `%s'.", args[0], pattern)
			status = 1
		}
	}
	return status
}

// PrintVersion reports the shell version.
func PrintVersion(ctx *Context, args []string) int {
	fmt.Fprintf(ctx.Stdout, "cicada v%s\n", Version)
	return 0
}

func init() {
	addBuiltin("cd", "cd [dir]", "Change the shell working directory.", Cd)
	addBuiltin("pwd", "pwd [-LP]", "Print the name of the current working directory.", Pwd)
	addBuiltin("exit", "exit [n]", "Exit the shell.", Exit)
	addBuiltin("export", "export [-p] [name[=value] ...]", "Set export attribute for shell variables.", Export)
	addBuiltin("unset", "unset [-v] [name ...]", "Unset values of shell variables.", Unset)
	addBuiltin("history", "history [-c] [n]", "Display or manipulate the history list.", History)
	addBuiltin("help", "help [pattern ...]", "Display information about builtin commands.", Help)
	addBuiltin("version", "version", "Display the shell version.", PrintVersion)
}
