package core

import (
	"path"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/spf13/afero"
)

// Completer completes command names with builtins and programs on $PATH, and
// arguments with file names relative to the shell's directory.
type Completer struct {
	ctx *Context
	fs  afero.Fs
}

var _ readline.AutoCompleter = (*Completer)(nil)

// NewCompleter creates a completer reading the real filesystem.
func NewCompleter(ctx *Context) *Completer {
	return &Completer{ctx: ctx, fs: afero.NewOsFs()}
}

// Do implements readline.AutoCompleter. Candidates are returned as the text
// following the word under the cursor.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	before := string(line[:pos])

	start := strings.LastIndexAny(before, " \t|&;<>") + 1
	word := before[start:]

	var candidates []string
	if isCommandPosition(before[:start]) {
		candidates = c.commands(word)
	} else {
		candidates = c.files(word)
	}

	out := make([][]rune, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, []rune(candidate[len(word):]))
	}
	return out, len([]rune(word))
}

// isCommandPosition is true if the next word would name a program.
func isCommandPosition(prefix string) bool {
	trimmed := strings.TrimRight(prefix, " \t")
	if trimmed == "" {
		return true
	}
	return strings.ContainsAny(trimmed[len(trimmed)-1:], "|&;")
}

func (c *Completer) commands(prefix string) []string {
	if strings.Contains(prefix, "/") {
		return c.files(prefix)
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range BuiltinNames() {
		if strings.HasPrefix(name, prefix) {
			seen[name] = true
			out = append(out, name+" ")
		}
	}
	for _, name := range Executables(c.ctx, prefix) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name+" ")
		}
	}
	sort.Strings(out)
	return out
}

func (c *Completer) files(word string) []string {
	dir, base := path.Split(word)

	searchDir := c.ctx.Dir()
	if dir != "" {
		searchDir = c.ctx.Resolve(expandHome(dir, c.ctx.Home()))
	}

	entries, err := afero.ReadDir(c.fs, searchDir)
	if err != nil {
		return nil
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if entry.IsDir() {
			out = append(out, dir+name+"/")
		} else {
			out = append(out, dir+name+" ")
		}
	}
	return out
}

func expandHome(dir, home string) string {
	if home == "" {
		return dir
	}
	if dir == "~/" || dir == "~" {
		return home
	}
	if strings.HasPrefix(dir, "~/") {
		return path.Join(home, dir[2:])
	}
	return dir
}
