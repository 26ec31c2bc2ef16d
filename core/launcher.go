package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/josephlewis42/cicada/core/shell"
)

const (
	StatusNotFound      = 127
	StatusCannotExecute = 126
	StatusSyntaxError   = 2
)

// LaunchErrorKind classifies why a stage didn't start.
type LaunchErrorKind int

const (
	CommandNotFound LaunchErrorKind = iota
	PermissionDenied
	SpawnFailed
	RedirectFailed
)

func (k LaunchErrorKind) String() string {
	switch k {
	case CommandNotFound:
		return "command not found"
	case PermissionDenied:
		return "permission denied"
	case SpawnFailed:
		return "spawn failed"
	case RedirectFailed:
		return "redirect failed"
	default:
		return fmt.Sprintf("LaunchErrorKind(%d)", int(k))
	}
}

// LaunchError is returned when a pipeline stage can't be started.
type LaunchError struct {
	Kind LaunchErrorKind
	// Name is the program or file the error is about.
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	switch {
	case e.Kind == CommandNotFound:
		return fmt.Sprintf("%s: command not found", e.Name)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Name, unwrapPath(e.Err))
	default:
		return fmt.Sprintf("%s: %v", e.Name, e.Kind)
	}
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Status is the exit status reported for the stage that failed to start.
func (e *LaunchError) Status() int {
	if e.Kind == CommandNotFound {
		return StatusNotFound
	}
	return StatusCannotExecute
}

// unwrapPath strips the op and path from fs errors since messages already
// name the file.
func unwrapPath(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// Launcher starts single pipeline stages as OS processes.
type Launcher struct {
	ctx *Context
	// self is the binary re-executed to run builtins in a child.
	self string
}

// NewLauncher creates a launcher for the context.
func NewLauncher(ctx *Context) *Launcher {
	self, err := os.Executable()
	if err != nil {
		ctx.Log.Printf("can't find own executable, builtins won't run in pipelines: %v", err)
	}
	return &Launcher{ctx: ctx, self: self}
}

// Launch starts cmd with the given descriptors in process group pgid, 0 for a
// new group led by the child. If foreground is set and the session is
// interactive the child takes the terminal before it runs. Redirections in
// cmd replace the matching descriptors. The caller keeps ownership of stdio.
func (l *Launcher) Launch(cmd *shell.Command, stdio Stdio, pgid int, foreground bool) (*os.Process, error) {
	path, env, err := l.resolve(cmd)
	if err != nil {
		return nil, err
	}

	files, closeFiles, err := l.redirect(cmd, stdio)
	if err != nil {
		return nil, err
	}
	defer closeFiles()

	sys := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	if term := l.ctx.Terminal; term != nil && foreground {
		sys.Foreground = true
		sys.Ctty = term.Fd()
	}

	proc, err := os.StartProcess(path, cmd.Argv(), &os.ProcAttr{
		Dir:   l.ctx.Dir(),
		Env:   env,
		Files: []*os.File{files.In, files.Out, files.Err},
		Sys:   sys,
	})
	switch {
	case err == nil:
		return proc, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, &LaunchError{Kind: PermissionDenied, Name: cmd.Name, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		// e.g. a missing script interpreter
		return nil, &LaunchError{Kind: CommandNotFound, Name: cmd.Name, Err: err}
	default:
		return nil, &LaunchError{Kind: SpawnFailed, Name: cmd.Name, Err: err}
	}
}

// resolve finds the program to run for cmd and the environment to give it.
func (l *Launcher) resolve(cmd *shell.Command) (path string, env []string, err error) {
	env = l.ctx.Env.Environ()

	if _, ok := Lookup(cmd.Name); ok {
		if l.self == "" {
			return "", nil, &LaunchError{Kind: SpawnFailed, Name: cmd.Name, Err: errors.New("builtin can't run in a child")}
		}
		return l.self, append(env, ReentryEnv+"="+cmd.Name), nil
	}

	path, err = LookPath(l.ctx, cmd.Name)
	switch {
	case err == nil:
		return path, env, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return "", nil, &LaunchError{Kind: CommandNotFound, Name: cmd.Name, Err: err}
	default:
		return "", nil, &LaunchError{Kind: PermissionDenied, Name: cmd.Name, Err: err}
	}
}

// redirect opens the files named by cmd's redirections in place of the
// matching descriptors. The returned func closes what it opened.
func (l *Launcher) redirect(cmd *shell.Command, stdio Stdio) (Stdio, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	open := func(name string, flag int) (*os.File, error) {
		f, err := os.OpenFile(l.ctx.Resolve(name), flag, 0644)
		if err != nil {
			closeAll()
			return nil, &LaunchError{Kind: RedirectFailed, Name: name, Err: err}
		}
		opened = append(opened, f)
		return f, nil
	}

	out := stdio
	if cmd.Stdin != "" {
		f, err := open(cmd.Stdin, os.O_RDONLY)
		if err != nil {
			return Stdio{}, nil, err
		}
		out.In = f
	}
	if cmd.Stdout != "" {
		f, err := open(cmd.Stdout, outputFlags(cmd.Append))
		if err != nil {
			return Stdio{}, nil, err
		}
		out.Out = f
	}

	return out, closeAll, nil
}

func outputFlags(appendMode bool) int {
	if appendMode {
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
}
