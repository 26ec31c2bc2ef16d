//go:build linux

package core

import (
	"bytes"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/cicada/core/config"
	"github.com/josephlewis42/cicada/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded []*logger.HistoryEntry

func (r *recorded) recorder() logger.Recorder {
	return logger.LogRecorder(func(he *logger.HistoryEntry) error {
		*r = append(*r, he)
		return nil
	})
}

func newTestShell(t *testing.T, script string) (*Shell, *recorded, *fileStdio) {
	t.Helper()

	dir := t.TempDir()
	in := filepath.Join(dir, "script")
	require.NoError(t, os.WriteFile(in, []byte(script), 0644))
	stdin, err := os.Open(in)
	require.NoError(t, err)
	t.Cleanup(func() { stdin.Close() })

	_, files := newFileContext(t)

	var history recorded
	sh, err := NewShell(Options{
		Config:   config.Default(),
		Stdin:    stdin,
		Stdout:   files.Out,
		Stderr:   files.Err,
		Environ:  []string{"HOME=" + dir, "PATH=" + os.Getenv("PATH")},
		Dir:      dir,
		Recorder: history.recorder(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { sh.Close() })

	return sh, &history, files
}

func TestShell_RunScript(t *testing.T) {
	sh, history, files := newTestShell(t, "echo one\n\n# comment\nfalse\necho two | tr a-z A-Z\n")

	assert.Equal(t, 0, sh.Run())
	assert.Equal(t, "one\nTWO\n", files.Stdout())

	var commands []string
	var statuses []int
	for _, he := range *history {
		commands = append(commands, he.Command)
		statuses = append(statuses, he.ExitStatus)
		assert.False(t, he.FinishedAt.Before(he.StartedAt))
	}
	assert.Equal(t, []string{"echo one", "# comment", "false", "echo two | tr a-z A-Z"}, commands)
	assert.Equal(t, []int{0, 0, 1, 0}, statuses)
	assert.Equal(t, commands, sh.Context().History())
}

func TestShell_exit(t *testing.T) {
	sh, _, files := newTestShell(t, "echo before\nexit 3\necho after\n")

	assert.Equal(t, 3, sh.Run())
	assert.Equal(t, "before\n", files.Stdout())
}

func TestShell_syntaxError(t *testing.T) {
	sh, history, files := newTestShell(t, "echo 'open\n")

	assert.Equal(t, StatusSyntaxError, sh.Run())
	assert.True(t, strings.HasPrefix(files.Stderr(), "cicada: syntax error"), "got %q", files.Stderr())
	require.Len(t, *history, 1)
	assert.Equal(t, StatusSyntaxError, (*history)[0].ExitStatus)
	assert.Zero(t, sh.Context().Jobs.Len())
}

func TestShell_RunScript_reapsBackground(t *testing.T) {
	sh, _, files := newTestShell(t, "true &\ntrue &\ntrue &\nsleep 0.3\necho done\n")

	assert.Equal(t, 0, sh.Run())
	assert.Equal(t, "done\n", files.Stdout())
	assert.Empty(t, files.Stderr())
	assert.Zero(t, sh.Context().Jobs.Len(), "finished jobs are dropped")
}

func TestShell_notify_notificationsOff(t *testing.T) {
	sh, _, files := newTestShell(t, "")
	sh.cfg.JobNotifications = false

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, sh.Execute("true &"))
	}
	require.Equal(t, 3, sh.Context().Jobs.Len())

	assert.Eventually(t, func() bool {
		sh.notify()
		return sh.Context().Jobs.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, files.Stderr())
}

func TestShell_searchPath(t *testing.T) {
	sh, _, _ := newTestShell(t, "")

	path := filepath.SplitList(sh.Context().Env.Getenv("PATH"))
	require.NotEmpty(t, path)
	assert.Contains(t, path, "/usr/local/bin")
	assert.Equal(t, filepath.Join(sh.Context().Home(), ".cargo", "bin"), path[len(path)-1])
}

func TestShell_panicRecovered(t *testing.T) {
	sh, history, files := newTestShell(t, "")
	AllBuiltins["explode"] = BuiltinFunc(func(ctx *Context, args []string) int {
		panic("boom")
	})
	defer delete(AllBuiltins, "explode")

	assert.Equal(t, 255, sh.Execute("explode"))
	assert.Equal(t, "cicada: internal error: boom\n", files.Stderr())
	require.Len(t, *history, 1)
	assert.Equal(t, 255, (*history)[0].ExitStatus)

	assert.Equal(t, 0, sh.Execute("true"))
}

func TestShell_historyLog(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(dir, log.New(ioutil.Discard, "", 0))
	require.NoError(t, err)

	_, files := newFileContext(t)
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer stdin.Close()

	sh, err := NewShell(Options{
		Config:  cfg,
		Stdin:   stdin,
		Stdout:  files.Out,
		Stderr:  files.Err,
		Environ: []string{"PATH=" + os.Getenv("PATH")},
		Dir:     dir,
	})
	require.NoError(t, err)
	sh.Execute("true")
	sh.Execute("false")
	require.NoError(t, sh.Close())

	fd, err := cfg.ReadHistoryLog()
	require.NoError(t, err)
	defer fd.Close()

	var got bytes.Buffer
	require.NoError(t, logger.ReadJSONLinesLog(fd, func(he *logger.HistoryEntry) {
		got.WriteString(he.Command + "\n")
	}))
	assert.Equal(t, "true\nfalse\n", got.String())
}
