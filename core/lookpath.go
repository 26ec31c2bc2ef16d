package core

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/josephlewis42/cicada/core/env"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories named by
// the context's PATH. If file contains a slash, it is tried directly relative
// to the context directory and the PATH is not consulted. The result is always
// absolute.
func LookPath(ctx *Context, file string) (string, error) {
	if strings.Contains(file, "/") {
		path := ctx.Resolve(file)
		if err := findExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}

	for _, dir := range filepath.SplitList(ctx.Env.Getenv(env.Path)) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := ctx.Resolve(filepath.Join(dir, file))
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Executables lists the names of programs on the context's PATH that start
// with prefix. The first directory providing a name wins.
func Executables(ctx *Context, prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range filepath.SplitList(ctx.Env.Getenv(env.Path)) {
		if dir == "" {
			dir = "."
		}
		entries, err := os.ReadDir(ctx.Resolve(dir))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if seen[name] || !strings.HasPrefix(name, prefix) {
				continue
			}
			if findExecutable(filepath.Join(ctx.Resolve(dir), name)) == nil {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
