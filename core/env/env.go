// Package env holds the shell's environment variables.
package env

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	Home   = "HOME"
	PWD    = "PWD"
	OldPWD = "OLDPWD"
	Path   = "PATH"
	User   = "USER"
	Shell  = "SHELL"
)

func splitEntry(e string) (key, value string) {
	split := strings.SplitN(e, "=", 2)
	key = split[0]
	if len(split) > 1 {
		value = split[1]
	}
	return key, value
}

// NewMapEnv creates a new empty environment.
func NewMapEnv() *MapEnv {
	return &MapEnv{}
}

// NewMapEnvFromEnvList creates an environment from "key=value" entries; later
// entries win.
func NewMapEnvFromEnvList(environ []string) *MapEnv {
	out := &MapEnv{}
	for _, e := range environ {
		key, value := splitEntry(e)
		out.Setenv(key, value)
	}
	return out
}

// MapEnv is an in-memory environment, safe for concurrent use.
type MapEnv struct {
	rw  sync.RWMutex
	env map[string]string
}

// Unsetenv unsets a single environment variable.
func (m *MapEnv) Unsetenv(key string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.env != nil {
		delete(m.env, key)
	}
}

// Setenv sets the value of the environment variable named by the key.
func (m *MapEnv) Setenv(key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()

	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
}

// LookupEnv retrieves the value of the environment variable named by the key
// and whether it was set.
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()

	val, ok := m.env[key]
	return val, ok
}

// Getenv retrieves the value of the environment variable named by the key.
func (m *MapEnv) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ returns a sorted copy of the environment in "key=value" form.
func (m *MapEnv) Environ() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	env := make([]string, 0, len(m.env))
	for k, v := range m.env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)

	return env
}

// SearchPath returns the directories named by PATH.
func (m *MapEnv) SearchPath() []string {
	return filepath.SplitList(m.Getenv(Path))
}

// AugmentPath adds directories to the front and back of PATH, skipping any
// that are already present.
func (m *MapEnv) AugmentPath(prepend, appendDirs []string) {
	current := m.SearchPath()
	seen := make(map[string]bool)
	for _, dir := range current {
		seen[dir] = true
	}

	var front []string
	for _, dir := range prepend {
		if dir != "" && !seen[dir] {
			front = append(front, dir)
			seen[dir] = true
		}
	}
	out := append(front, current...)
	for _, dir := range appendDirs {
		if dir != "" && !seen[dir] {
			out = append(out, dir)
			seen[dir] = true
		}
	}

	m.Setenv(Path, strings.Join(out, string(filepath.ListSeparator)))
}
