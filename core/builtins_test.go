package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/cicada/core/jobs"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAllBuiltins(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			builtin, ok := Lookup(name)
			require.True(t, ok)
			require.NotNil(t, builtin)
			assert.NotEmpty(t, BuiltinSummary(name))
			assert.True(t, strings.HasPrefix(builtinDocs[name].use, name))
		})
	}

	_, ok := Lookup("ls")
	assert.False(t, ok)
}

func runBuiltin(ctx *Context, args ...string) int {
	builtin, ok := Lookup(args[0])
	if !ok {
		panic("no builtin " + args[0])
	}
	return builtin.Main(ctx, args)
}

func TestCd(t *testing.T) {
	ctx, stdout, stderr := newTestContext(t)
	start := ctx.Dir()
	require.NoError(t, os.Mkdir(filepath.Join(start, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(start, "file"), nil, 0644))

	assert.Equal(t, 0, runBuiltin(ctx, "cd", "sub"))
	assert.Equal(t, filepath.Join(start, "sub"), ctx.Dir())
	assert.Equal(t, ctx.Dir(), ctx.Env.Getenv("PWD"))
	assert.Equal(t, start, ctx.Env.Getenv("OLDPWD"))

	assert.Equal(t, 0, runBuiltin(ctx, "cd", "-"))
	assert.Equal(t, start, ctx.Dir())
	assert.Equal(t, start+"\n", stdout.String())

	assert.Equal(t, 0, runBuiltin(ctx, "cd"))
	assert.Equal(t, ctx.Home(), ctx.Dir())

	require.NoError(t, ctx.Chdir(start))
	assert.Equal(t, 0, runBuiltin(ctx, "cd", ""), "empty argument goes home")
	assert.Equal(t, ctx.Home(), ctx.Dir())

	cases := map[string]struct {
		args    []string
		wantErr string
	}{
		"missing":  {[]string{"cd", "/nope"}, "cd: /nope: no such file or directory\n"},
		"not-dir":  {[]string{"cd", filepath.Join(start, "file")}, "cd: " + filepath.Join(start, "file") + ": not a directory\n"},
		"too-many": {[]string{"cd", "a", "b"}, "cd: too many arguments\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			stderr.Reset()
			before := ctx.Dir()

			assert.Equal(t, 1, runBuiltin(ctx, tc.args...))
			assert.Equal(t, tc.wantErr, stderr.String())
			assert.Equal(t, before, ctx.Dir())
		})
	}
}

func TestCd_noHome(t *testing.T) {
	ctx, _, stderr := newTestContext(t)
	ctx.Env.Unsetenv("HOME")
	before := ctx.Dir()

	assert.Equal(t, 1, runBuiltin(ctx, "cd"))
	assert.Equal(t, 1, runBuiltin(ctx, "cd", ""))
	assert.Equal(t, "cd: HOME not set\ncd: HOME not set\n", stderr.String())
	assert.Equal(t, before, ctx.Dir())
}

func TestPwd(t *testing.T) {
	ctx, stdout, _ := newTestContext(t)
	real := filepath.Join(ctx.Dir(), "real")
	require.NoError(t, os.Mkdir(real, 0755))
	require.NoError(t, os.Symlink(real, filepath.Join(ctx.Dir(), "link")))
	require.NoError(t, ctx.Chdir("link"))

	assert.Equal(t, 0, runBuiltin(ctx, "pwd"))
	assert.Equal(t, 0, runBuiltin(ctx, "pwd", "-P"))

	resolved, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(real), "link")+"\n"+resolved+"\n", stdout.String())
}

func TestPwd_badFlag(t *testing.T) {
	ctx, _, stderr := newTestContext(t)

	assert.Equal(t, 2, runBuiltin(ctx, "pwd", "-z"))
	assert.Contains(t, stderr.String(), "usage: pwd [-LP]")
}

func TestExit(t *testing.T) {
	cases := map[string]struct {
		args       []string
		lastStatus int
		wantStatus int
		wantExit   bool
		wantErr    string
	}{
		"last-status": {[]string{"exit"}, 3, 3, true, ""},
		"explicit":    {[]string{"exit", "4"}, 0, 4, true, ""},
		"wraps":       {[]string{"exit", "257"}, 0, 1, true, ""},
		"non-numeric": {[]string{"exit", "x"}, 0, 2, true, "exit: x: numeric argument required\n"},
		"too-many":    {[]string{"exit", "1", "2"}, 0, 1, false, "exit: too many arguments\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ctx, _, stderr := newTestContext(t)
			ctx.lastStatus = tc.lastStatus

			assert.Equal(t, tc.wantStatus, runBuiltin(ctx, tc.args...))
			status, ok := ctx.ExitRequested()
			assert.Equal(t, tc.wantExit, ok)
			if tc.wantExit {
				assert.Equal(t, tc.wantStatus, status)
			}
			assert.Equal(t, tc.wantErr, stderr.String())
		})
	}
}

// stoppedOS reports one process as stopped the first time it's reaped.
type stoppedOS struct {
	pid      int
	reported bool
}

func (s *stoppedOS) Wait4(pid, options int) (int, unix.WaitStatus, error) {
	if pid == s.pid && !s.reported {
		s.reported = true
		return pid, unix.WaitStatus(0x7f | int(unix.SIGTSTP)<<8), nil
	}
	return 0, 0, nil
}

func (s *stoppedOS) Kill(pid int, sig unix.Signal) error {
	return nil
}

// addStoppedJob registers a fake job and marks it stopped.
func addStoppedJob(t *testing.T, ctx *Context, command string) *jobs.Job {
	t.Helper()

	const pid = 4242
	ctx.Jobs = jobs.NewTable(&stoppedOS{pid: pid}, nil)
	proc := jobs.NewProcess(nil, 0, command)
	proc.Pid = pid
	j, err := ctx.Jobs.Add(&jobs.Job{
		Pgid:      pid,
		Command:   command,
		Processes: []*jobs.Process{proc},
		ExitCodes: []int{0},
	})
	require.NoError(t, err)

	ctx.Jobs.Reap()
	require.Equal(t, jobs.Stopped, j.Status())
	return j
}

func TestExit_stoppedJobs(t *testing.T) {
	ctx, _, stderr := newTestContext(t)
	addStoppedJob(t, ctx, "vim")

	ctx.lines = 1
	assert.Equal(t, 1, runBuiltin(ctx, "exit"))
	assert.Equal(t, "There are stopped jobs.\n", stderr.String())
	_, ok := ctx.ExitRequested()
	assert.False(t, ok)

	// A second exit straight after the warning goes through.
	ctx.lines = 2
	assert.Equal(t, 0, runBuiltin(ctx, "exit"))
	_, ok = ctx.ExitRequested()
	assert.True(t, ok)
}

func TestJobs_builtin(t *testing.T) {
	ctx, stdout, stderr := newTestContext(t)
	j := addStoppedJob(t, ctx, "vim notes.txt")

	assert.Equal(t, 0, runBuiltin(ctx, "jobs"))
	assert.Equal(t, "[1]+  Stopped                 vim notes.txt\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, 0, runBuiltin(ctx, "jobs", "-l"))
	assert.Equal(t, "[1]+  4242 Stopped                 vim notes.txt\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, 0, runBuiltin(ctx, "jobs", "-p", "%1"))
	assert.Equal(t, "4242\n", stdout.String())

	assert.Equal(t, 1, runBuiltin(ctx, "jobs", "%7"))
	assert.Equal(t, "jobs: %7: no such job\n", stderr.String())

	stdout.Reset()
	assert.Equal(t, 0, runBuiltin(ctx, "bg"))
	assert.Equal(t, "[1]+ vim notes.txt &\n", stdout.String())
	assert.Equal(t, jobs.Running, j.Status())
	assert.True(t, j.Background)

	stderr.Reset()
	assert.Equal(t, 0, runBuiltin(ctx, "bg", "%1"))
	assert.Equal(t, "bg: job 1 already in background\n", stderr.String())
}

func TestFg_noJob(t *testing.T) {
	ctx, _, stderr := newTestContext(t)

	assert.Equal(t, 1, runBuiltin(ctx, "fg"))
	assert.Equal(t, "fg: no current job\n", stderr.String())

	stderr.Reset()
	assert.Equal(t, 1, runBuiltin(ctx, "fg", "1", "2"))
	assert.Equal(t, "fg: too many arguments\n", stderr.String())
}

func TestExportUnset(t *testing.T) {
	ctx, stdout, stderr := newTestContext(t)

	assert.Equal(t, 0, runBuiltin(ctx, "export", "GREETING=hello world", "EMPTY="))
	assert.Equal(t, "hello world", ctx.Env.Getenv("GREETING"))
	value, ok := ctx.Env.LookupEnv("EMPTY")
	assert.True(t, ok)
	assert.Empty(t, value)

	assert.Equal(t, 0, runBuiltin(ctx, "export"))
	assert.Contains(t, stdout.String(), "export GREETING='hello world'\n")
	assert.Contains(t, stdout.String(), "export USER=tester\n")

	assert.Equal(t, 1, runBuiltin(ctx, "export", "1BAD=x"))
	assert.Equal(t, "export: `1BAD=x': not a valid identifier\n", stderr.String())

	assert.Equal(t, 0, runBuiltin(ctx, "unset", "GREETING"))
	_, ok = ctx.Env.LookupEnv("GREETING")
	assert.False(t, ok)
}

func TestHistory(t *testing.T) {
	ctx, stdout, _ := newTestContext(t)
	cleared := false
	ctx.clearHistory = func() { cleared = true }

	for _, line := range []string{"ls", "cd /tmp", "history"} {
		ctx.AddHistory(line)
	}

	assert.Equal(t, 0, runBuiltin(ctx, "history"))
	assert.Equal(t, "    1  ls\n    2  cd /tmp\n    3  history\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, 0, runBuiltin(ctx, "history", "1"))
	assert.Equal(t, "    3  history\n", stdout.String())

	assert.Equal(t, 1, runBuiltin(ctx, "history", "x"))

	assert.Equal(t, 0, runBuiltin(ctx, "history", "-c"))
	assert.Empty(t, ctx.History())
	assert.True(t, cleared)
}

func TestHelp(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	cases := map[string]struct {
		args       []string
		wantStatus int
	}{
		"all":    {[]string{"help"}, 0},
		"prefix": {[]string{"help", "h"}, 0},
		"glob":   {[]string{"help", "?g"}, 0},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ctx, stdout, _ := newTestContext(t)
			assert.Equal(t, tc.wantStatus, runBuiltin(ctx, tc.args...))
			g.Assert(t, tn, stdout.Bytes())
		})
	}
}

func TestHelp_noMatch(t *testing.T) {
	ctx, stdout, stderr := newTestContext(t)

	assert.Equal(t, 1, runBuiltin(ctx, "help", "zzz"))
	assert.Empty(t, stdout.String())
	assert.Equal(t, "help: no help topics match `zzz'.\n", stderr.String())
}

func TestVersion(t *testing.T) {
	ctx, stdout, _ := newTestContext(t)

	assert.Equal(t, 0, runBuiltin(ctx, "version"))
	assert.Equal(t, "cicada v"+Version+"\n", stdout.String())
}
