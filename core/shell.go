package core

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cicada/core/config"
	"github.com/josephlewis42/cicada/core/env"
	"github.com/josephlewis42/cicada/core/jobs"
	"github.com/josephlewis42/cicada/core/logger"
	"github.com/josephlewis42/cicada/core/shell"
	"github.com/josephlewis42/cicada/core/tty"
	"golang.org/x/sys/unix"
)

// Options configure a new Shell.
type Options struct {
	Config *config.Configuration

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Logger receives diagnostics, nil discards them.
	Logger *log.Logger
	// Environ is the starting environment in key=value form.
	Environ []string
	// Dir is the starting directory, blank for $PWD.
	Dir string
	// Recorder receives a record of every line. If nil the configured history
	// log is used.
	Recorder logger.Recorder
}

// Shell reads lines and runs them.
type Shell struct {
	ctx      *Context
	exec     *Executor
	cfg      *config.Configuration
	prompt   *Prompt
	recorder logger.Recorder
	policy   *jobs.SignalPolicy

	// Only set for interactive shells.
	readline *readline.Instance
	gate     *tty.Gate

	toClose listCloser
}

// NewShell sets up a session. If opts.Stdin is a terminal the shell takes
// control of it and runs interactively.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logs := opts.Logger
	if logs == nil {
		logs = log.New(ioutil.Discard, "", 0)
	}

	environ := env.NewMapEnvFromEnvList(opts.Environ)
	environ.AugmentPath(cfg.SearchPath(environ.Getenv(env.Home)))

	ctx, err := NewContext(environ, opts.Dir, Stdio{In: opts.Stdin, Out: opts.Stdout, Err: opts.Stderr}, logs)
	if err != nil {
		return nil, err
	}

	s := &Shell{
		ctx:      ctx,
		exec:     NewExecutor(ctx),
		cfg:      cfg,
		prompt:   NewPrompt(cfg.Prompt, cfg.ColorPrompt),
		recorder: opts.Recorder,
	}

	if s.recorder == nil {
		s.recorder = logger.Discard
		fd, err := cfg.OpenHistoryLog()
		switch {
		case err != nil:
			logs.Printf("opening history log: %v", err)
		case fd != nil:
			s.toClose = append(s.toClose, fd)
			s.recorder = logger.NewJsonLinesLogRecorder(fd)
		}
	}

	if tty.IsTerminal(opts.Stdin) {
		if err := s.initInteractive(opts); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.policy = jobs.InstallSignalPolicy(ctx.Jobs, ctx.Interactive())
	return s, nil
}

func (s *Shell) initInteractive(opts Options) error {
	terminal, err := tty.Open(opts.Stdin, s.ctx.Log)
	if err != nil {
		return err
	}
	s.ctx.Terminal = terminal

	// Readline reads in the background; the gate keeps it off the terminal
	// while a job owns it.
	s.gate = tty.NewGate(opts.Stdin)
	s.toClose = append(s.toClose, s.gate)

	cfg := &readline.Config{
		Stdin:        readline.NewCancelableStdin(s.gate),
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		HistoryFile:  s.cfg.HistoryFilePath(),
		HistoryLimit: s.cfg.HistoryLimit,
		AutoComplete: NewCompleter(s.ctx),

		FuncIsTerminal: func() bool {
			return true
		},
	}
	if s.cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = -1
	}

	if err := cfg.Init(); err != nil {
		return err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	s.readline = rl
	s.toClose = append(s.toClose, rl)
	s.ctx.clearHistory = rl.ResetHistory
	return nil
}

// Context returns the session state.
func (s *Shell) Context() *Context {
	return s.ctx
}

// Status is the status the shell should exit with.
func (s *Shell) Status() int {
	if status, ok := s.ctx.ExitRequested(); ok {
		return status
	}
	return s.ctx.LastStatus()
}

// Execute runs one line and records it. Blank lines are ignored.
func (s *Shell) Execute(line string) int {
	if shell.Normalize(line) == "" {
		return s.ctx.LastStatus()
	}

	s.ctx.lines++
	s.ctx.AddHistory(line)

	start := time.Now()
	status := s.execute(line)
	finish := time.Now()

	if err := s.recorder.Record(logger.NewHistoryEntry(line, start, finish, status)); err != nil {
		s.ctx.Log.Printf("recording history: %v", err)
	}
	return status
}

func (s *Shell) execute(line string) (status int) {
	defer func() {
		if r := recover(); r != nil {
			s.ctx.Log.Printf("panic running %q: %v\n%s", line, r, debug.Stack())
			s.ctx.errorf("cicada: internal error: %v", r)
			status = jobs.StatusWaitFailed
			s.ctx.lastStatus = status
		}
	}()

	list, err := shell.ParseList(line, s.ctx.Home())
	if err != nil {
		s.ctx.errorf("cicada: %v", err)
		s.ctx.lastStatus = StatusSyntaxError
		return StatusSyntaxError
	}
	if list.Empty() {
		return s.ctx.LastStatus()
	}

	return s.exec.RunList(list)
}

// notify collects finished background jobs and reports them.
func (s *Shell) notify() {
	s.ctx.Jobs.Reap()
	if s.cfg.JobNotifications {
		s.ctx.Jobs.Notify(s.ctx.Stderr)
		return
	}
	s.ctx.Jobs.Prune()
}

// Run reads lines until exit or end of input. Interactive sessions use the
// line editor, others read the input in full.
func (s *Shell) Run() int {
	if s.readline == nil {
		return s.RunScript(s.ctx.Files.In)
	}
	return s.RunInteractive()
}

// RunInteractive reads lines from the terminal until exit or end of input.
func (s *Shell) RunInteractive() int {
	for {
		if _, ok := s.ctx.ExitRequested(); ok {
			return s.Status()
		}

		s.notify()
		s.readline.SetPrompt(s.prompt.Render(s.ctx))

		s.gate.Resume()
		line, err := s.readline.Readline()
		s.gate.Pause()

		switch {
		case err == readline.ErrInterrupt:
			continue

		case err == io.EOF:
			return s.Status()

		case err != nil:
			s.ctx.Log.Printf("readline: %v", err)
			return s.Status()
		}

		s.Execute(line)
	}
}

// RunScript runs each line of r in order without job notifications.
func (s *Shell) RunScript(r io.Reader) int {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		s.ctx.errorf("cicada: reading input: %v", err)
		return 1
	}

	for _, line := range strings.Split(string(data), "\n") {
		s.Execute(strings.TrimSuffix(line, "\r"))
		if _, ok := s.ctx.ExitRequested(); ok {
			break
		}

		// Scripts get no notices but finished jobs still go.
		s.ctx.Jobs.Reap()
		s.ctx.Jobs.Prune()
	}
	return s.Status()
}

// Close hangs up stopped jobs, restores signals and releases the terminal.
func (s *Shell) Close() error {
	if s.policy != nil {
		s.policy.Stop()
	}

	for _, j := range s.ctx.Jobs.Jobs() {
		if j.Status() != jobs.Stopped {
			continue
		}
		s.ctx.Log.Printf("hanging up %%%d (%s)", j.ID, j.Command)
		s.ctx.Jobs.Signal(j, unix.SIGHUP)
		s.ctx.Jobs.Signal(j, unix.SIGCONT)
	}

	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for i := len(lc) - 1; i >= 0; i-- {
		if err := lc[i].Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
