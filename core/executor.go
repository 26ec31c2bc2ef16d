package core

import (
	"errors"
	"io"
	"os"

	"github.com/josephlewis42/cicada/core/jobs"
	"github.com/josephlewis42/cicada/core/shell"
)

// StageKind says how a pipeline stage is run.
type StageKind int

const (
	StageExternal StageKind = iota
	StageBuiltin
)

func (k StageKind) String() string {
	if k == StageBuiltin {
		return "builtin"
	}
	return "external"
}

// Executor runs parsed command lines.
type Executor struct {
	ctx      *Context
	launcher *Launcher
}

// NewExecutor creates an executor for the context.
func NewExecutor(ctx *Context) *Executor {
	return &Executor{ctx: ctx, launcher: NewLauncher(ctx)}
}

func (e *Executor) classify(cmd *shell.Command) StageKind {
	if _, ok := Lookup(cmd.Name); ok {
		return StageBuiltin
	}
	return StageExternal
}

// RunList runs each pipeline of l in turn, honoring && and ||, and returns the
// status of the last one that ran.
func (e *Executor) RunList(l *shell.List) int {
	status := e.ctx.lastStatus
	run := true
	for _, item := range l.Items {
		if _, exiting := e.ctx.ExitRequested(); exiting {
			break
		}

		if run {
			status = e.Run(item.Pipeline)
			e.ctx.lastStatus = status
		}

		switch item.Op {
		case shell.OpAnd:
			run = status == 0
		case shell.OpOr:
			run = status != 0
		default:
			run = true
		}
	}
	return status
}

// Run executes a pipeline and returns its status: the last stage's exit code,
// 128+n if it was killed by signal n, 128+SIGTSTP if the job stopped, or 0
// for background jobs.
func (e *Executor) Run(p *shell.Pipeline) int {
	if len(p.Commands) == 1 && !p.Background && e.classify(&p.Commands[0]) == StageBuiltin {
		return e.runBuiltin(&p.Commands[0])
	}

	j, status := e.launch(p)
	if j == nil {
		return status
	}

	if p.Background {
		if e.ctx.Interactive() {
			e.ctx.Jobs.Announce(e.ctx.Stderr, j)
		}
		return 0
	}

	return e.ctx.foreground(j, false)
}

// runBuiltin runs a builtin in the shell process with the stage's
// redirections applied to its streams.
func (e *Executor) runBuiltin(cmd *shell.Command) int {
	builtin, _ := Lookup(cmd.Name)

	files, closeFiles, err := e.launcher.redirect(cmd, e.ctx.Files)
	if err != nil {
		e.ctx.errorf("cicada: %v", err)
		return 1
	}
	defer closeFiles()

	var in io.Reader = e.ctx.Stdin
	out := e.ctx.Stdout
	if cmd.Stdin != "" {
		in = files.In
	}
	if cmd.Stdout != "" {
		out = files.Out
	}

	oldIn, oldOut := e.ctx.Stdin, e.ctx.Stdout
	e.ctx.Stdin, e.ctx.Stdout = in, out
	defer func() { e.ctx.Stdin, e.ctx.Stdout = oldIn, oldOut }()

	return builtin.Main(e.ctx, cmd.Argv())
}

type pipe struct {
	r, w *os.File
}

// launch starts every stage of p in one process group and registers the job.
// If nothing could be started the job is nil and the status is the last
// stage's failure.
func (e *Executor) launch(p *shell.Pipeline) (*jobs.Job, int) {
	n := len(p.Commands)

	pipes := make([]pipe, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			for _, opened := range pipes[:i] {
				opened.r.Close()
				opened.w.Close()
			}
			e.ctx.errorf("cicada: pipe: %v", err)
			return nil, StatusCannotExecute
		}
		pipes[i] = pipe{r, w}
	}

	codes := make([]int, n)
	var procs []*jobs.Process
	var handles []*os.Process
	pgid := 0
	for i := range p.Commands {
		cmd := &p.Commands[i]

		stdio := e.ctx.Files
		if i > 0 {
			stdio.In = pipes[i-1].r
		}
		if i < n-1 {
			stdio.Out = pipes[i].w
		}

		proc, err := e.launcher.Launch(cmd, stdio, pgid, !p.Background && pgid == 0)

		// Both ends this stage used now belong to the child.
		if i > 0 {
			pipes[i-1].r.Close()
		}
		if i < n-1 {
			pipes[i].w.Close()
		}

		if err != nil {
			e.ctx.errorf("cicada: %v", err)
			codes[i] = launchStatus(err)
			continue
		}

		e.ctx.Log.Printf("started %s (%s) as %d in group %d", cmd.Name, e.classify(cmd), proc.Pid, pgid)
		if pgid == 0 {
			pgid = proc.Pid
		}
		procs = append(procs, jobs.NewProcess(proc, i, cmd.Name))
		handles = append(handles, proc)
	}

	if len(procs) == 0 {
		return nil, codes[n-1]
	}

	command := p.Source
	if command == "" {
		command = p.Render()
	}

	j, err := e.ctx.Jobs.Add(&jobs.Job{
		Pgid:       pgid,
		Command:    command,
		Background: p.Background,
		Processes:  procs,
		ExitCodes:  codes,
	})
	if err != nil {
		// Can't track it, so don't leave it running.
		e.ctx.Log.Printf("registering job: %v", err)
		e.ctx.errorf("cicada: %v", err)
		for _, proc := range handles {
			proc.Kill()
			proc.Wait()
		}
		return nil, StatusCannotExecute
	}
	return j, 0
}

func launchStatus(err error) int {
	var le *LaunchError
	if errors.As(err, &le) {
		return le.Status()
	}
	return StatusCannotExecute
}
