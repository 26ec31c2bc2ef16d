package core

import (
	"fmt"
	"io"
	"sort"

	"github.com/pborman/getopt/v2"
)

// Version is reported by the version builtin and --version.
const Version = "0.1.0"

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]Builtin)

// builtinDocs holds the usage line and summary shown by help.
var builtinDocs = make(map[string]builtinDoc)

type builtinDoc struct {
	use   string
	short string
}

// Builtin is a command run by the shell itself.
type Builtin interface {
	Main(ctx *Context, args []string) int
}

type BuiltinFunc func(ctx *Context, args []string) int

func (f BuiltinFunc) Main(ctx *Context, args []string) int {
	return f(ctx, args)
}

var _ Builtin = (BuiltinFunc)(nil)

func addBuiltin(name, use, short string, fn BuiltinFunc) {
	AllBuiltins[name] = fn
	builtinDocs[name] = builtinDoc{use: use, short: short}
}

// Lookup finds a builtin by name.
func Lookup(name string) (Builtin, bool) {
	b, ok := AllBuiltins[name]
	return b, ok
}

// BuiltinNames returns the sorted names of every builtin.
func BuiltinNames() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuiltinSummary returns the one line description of a builtin.
func BuiltinSummary(name string) string {
	return builtinDocs[name].short
}

// SimpleBuiltin parses getopt style flags for a builtin.
type SimpleBuiltin struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

func newSimpleBuiltin(name string) *SimpleBuiltin {
	doc := builtinDocs[name]
	return &SimpleBuiltin{Use: doc.use, Short: doc.short}
}

// Flags gets the command's flag set.
func (s *SimpleBuiltin) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleBuiltin) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run parses args, which start with the command name. If parsing was
// successful the callback is called with the remaining arguments.
func (s *SimpleBuiltin) Run(ctx *Context, args []string, callback func(args []string) int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(ctx.Stderr, "%s: %s\n", args[0], err)
		s.PrintHelp(ctx.Stderr)
		return 2
	}

	if *s.ShowHelp {
		s.PrintHelp(ctx.Stdout)
		return 0
	}

	return callback(opts.Args())
}
