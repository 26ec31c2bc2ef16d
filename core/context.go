package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/cicada/core/env"
	"github.com/josephlewis42/cicada/core/jobs"
	"github.com/josephlewis42/cicada/core/tty"
	"golang.org/x/sys/unix"
)

var (
	ErrNotDir = errors.New("not a directory")
	ErrNoHome = errors.New("HOME not set")
	ErrNoPrev = errors.New("OLDPWD not set")
)

// Stdio holds the descriptors a process is started with.
type Stdio struct {
	In, Out, Err *os.File
}

// Context is the state a shell session carries between commands. Builtins
// mutate it; the shell never changes its own working directory.
type Context struct {
	Env  *env.MapEnv
	Jobs *jobs.Table
	// Terminal is nil when the session isn't interactive.
	Terminal *tty.Terminal
	// Files are the descriptors children inherit.
	Files Stdio

	// Streams builtins read and write, usually the same as Files.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log *log.Logger

	dir     string
	prevDir string

	history      []string
	clearHistory func()

	exitRequested bool
	exitStatus    int
	lastStatus    int

	// lines counts the lines run; warnedLine is the line exit last warned
	// about stopped jobs on.
	lines      int
	warnedLine int

	// modes holds the terminal modes of stopped jobs so they come back the way
	// they left.
	modes map[*jobs.Job]*unix.Termios
}

// NewContext creates a session rooted at dir. If dir is empty $PWD is used,
// falling back to the process working directory.
func NewContext(environ *env.MapEnv, dir string, stdio Stdio, logger *log.Logger) (*Context, error) {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	if dir == "" {
		dir = environ.Getenv(env.PWD)
	}
	if dir == "" || !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}

	ctx := &Context{
		Env:    environ,
		Jobs:   jobs.NewTable(jobs.SystemOS, logger),
		Files:  stdio,
		Stdin:  stdio.In,
		Stdout: stdio.Out,
		Stderr: stdio.Err,
		Log:    logger,
		dir:    filepath.Clean(dir),
		modes:  make(map[*jobs.Job]*unix.Termios),

		warnedLine: -1,
	}
	ctx.prevDir = environ.Getenv(env.OldPWD)
	environ.Setenv(env.PWD, ctx.dir)
	return ctx, nil
}

// Dir returns the current directory.
func (c *Context) Dir() string {
	return c.dir
}

// PrevDir returns the directory before the last successful Chdir.
func (c *Context) PrevDir() string {
	return c.prevDir
}

// Home returns $HOME.
func (c *Context) Home() string {
	return c.Env.Getenv(env.Home)
}

// Resolve makes path absolute relative to the current directory.
func (c *Context) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.dir, path)
}

// Chdir changes the current directory. On failure the context is unchanged.
func (c *Context) Chdir(path string) error {
	target := c.Resolve(path)

	info, err := os.Stat(target)
	switch {
	case err != nil:
		return err
	case !info.IsDir():
		return &fs.PathError{Op: "chdir", Path: path, Err: ErrNotDir}
	}
	if err := unix.Access(target, unix.X_OK); err != nil {
		return &fs.PathError{Op: "chdir", Path: path, Err: fs.ErrPermission}
	}

	c.prevDir = c.dir
	c.dir = target
	c.Env.Setenv(env.OldPWD, c.prevDir)
	c.Env.Setenv(env.PWD, c.dir)
	return nil
}

// RequestExit asks the shell to stop after the current line.
func (c *Context) RequestExit(status int) {
	c.exitRequested = true
	c.exitStatus = status
}

// ExitRequested reports whether exit was called and with what status.
func (c *Context) ExitRequested() (status int, ok bool) {
	return c.exitStatus, c.exitRequested
}

// LastStatus is the status of the most recently completed line.
func (c *Context) LastStatus() int {
	return c.lastStatus
}

// AddHistory appends a line to the in-session history.
func (c *Context) AddHistory(line string) {
	c.history = append(c.history, line)
}

// History returns the in-session history, oldest first.
func (c *Context) History() []string {
	return c.history
}

// ClearHistory forgets the in-session history along with anything the line
// editor remembers.
func (c *Context) ClearHistory() {
	c.history = nil
	if c.clearHistory != nil {
		c.clearHistory()
	}
}

// Interactive is true if the session has a terminal.
func (c *Context) Interactive() bool {
	return c.Terminal != nil
}

// errorf writes a diagnostic for the user.
func (c *Context) errorf(format string, a ...interface{}) {
	fmt.Fprintf(c.Stderr, format+"\n", a...)
}

// foreground hands the terminal to j, waits for it to finish or stop, then
// takes the terminal back. If resume is set the job is sent SIGCONT first.
// The returned status follows the last stage; a stop reports 128+SIGTSTP.
func (c *Context) foreground(j *jobs.Job, resume bool) int {
	if resume {
		if c.Terminal != nil {
			if err := c.Terminal.Give(j.Pgid); err != nil {
				c.Log.Printf("giving terminal to %d: %v", j.Pgid, err)
			}
			if modes, ok := c.modes[j]; ok {
				c.Terminal.SetModes(modes)
				delete(c.modes, j)
			}
		}
		if err := c.Jobs.Continue(j, true); err != nil {
			if c.Terminal != nil {
				c.Terminal.Reclaim()
			}
			c.errorf("fg: %v", err)
			return 1
		}
	}

	status := c.Jobs.WaitForeground(j)

	if c.Terminal != nil {
		if status == jobs.Stopped {
			if modes, err := c.Terminal.Modes(); err == nil {
				c.modes[j] = modes
			}
		}
		if err := c.Terminal.Reclaim(); err != nil {
			c.Log.Printf("reclaiming terminal: %v", err)
		}
	}

	if status == jobs.Stopped {
		fmt.Fprintln(c.Stderr)
		c.Jobs.Notify(c.Stderr)
		return 128 + int(unix.SIGTSTP)
	}

	delete(c.modes, j)
	c.Jobs.Remove(j)
	return j.ExitStatus()
}
