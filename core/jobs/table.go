// Package jobs tracks launched pipelines, their process groups and their
// foreground/background state.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// StatusWaitFailed is recorded for processes whose status couldn't be
	// collected.
	StatusWaitFailed = 255
)

var (
	ErrNoSuchJob     = errors.New("no such job")
	ErrNoCurrentJob  = errors.New("no current job")
	ErrJobDone       = errors.New("job has terminated")
	ErrDuplicatePgid = errors.New("process group is already in use")
	ErrNoProcesses   = errors.New("job has no processes")
)

// OS is the set of process operations the table relies on.
type OS interface {
	Wait4(pid int, options int) (wpid int, status unix.WaitStatus, err error)
	Kill(pid int, sig unix.Signal) error
}

type sysOS struct{}

func (sysOS) Wait4(pid int, options int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, options, nil)
	return wpid, ws, err
}

func (sysOS) Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// SystemOS performs real process operations.
var SystemOS OS = sysOS{}

// Table owns every in-flight job. It's the only component that waits on or
// signals processes.
type Table struct {
	mu         sync.Mutex
	os         OS
	log        *log.Logger
	jobs       []*Job
	recent     []*Job
	foreground *Job
}

// NewTable creates a job table using the given OS, logging diagnostics to
// logger. A nil logger discards.
func NewTable(os OS, logger *log.Logger) *Table {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &Table{os: os, log: logger}
}

// Add registers a freshly launched job as Running and assigns it an ID.
func (t *Table) Add(j *Job) (*Job, error) {
	if len(j.Processes) == 0 {
		return nil, ErrNoProcesses
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, other := range t.jobs {
		if other.status != Done && other.Pgid == j.Pgid {
			return nil, fmt.Errorf("%d: %w", j.Pgid, ErrDuplicatePgid)
		}
	}

	j.ID = t.nextID()
	j.status = Running
	t.jobs = append(t.jobs, j)
	sort.Slice(t.jobs, func(a, b int) bool { return t.jobs[a].ID < t.jobs[b].ID })
	if j.Background {
		t.touch(j)
	}
	return j, nil
}

// nextID returns the lowest unused job number.
func (t *Table) nextID() int {
	used := make(map[int]bool)
	for _, j := range t.jobs {
		used[j.ID] = true
	}
	for id := 1; ; id++ {
		if !used[id] {
			return id
		}
	}
}

// touch marks j as the current job.
func (t *Table) touch(j *Job) {
	out := []*Job{j}
	for _, other := range t.recent {
		if other != j {
			out = append(out, other)
		}
	}
	t.recent = out
}

// Remove drops a job from the table.
func (t *Table) Remove(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(j)
}

func (t *Table) remove(j *Job) {
	filter := func(in []*Job) []*Job {
		var out []*Job
		for _, other := range in {
			if other != j {
				out = append(out, other)
			}
		}
		return out
	}
	t.jobs = filter(t.jobs)
	t.recent = filter(t.recent)
	if t.foreground == j {
		t.foreground = nil
	}
}

// Jobs returns a snapshot of the table ordered by ID.
func (t *Table) Jobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Job(nil), t.jobs...)
}

// Len returns the number of jobs in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Foreground returns the process group of the job holding the terminal.
func (t *Table) Foreground() (pgid int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.foreground == nil {
		return 0, false
	}
	return t.foreground.Pgid, true
}

func (t *Table) setForeground(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.foreground = j
	if j != nil {
		j.Background = false
	}
}

// marker returns the indicator the jobs builtin shows next to a job.
func (t *Table) marker(j *Job) byte {
	live := t.live()
	switch {
	case len(live) > 0 && live[0] == j:
		return '+'
	case len(live) > 1 && live[1] == j:
		return '-'
	default:
		return ' '
	}
}

// live returns jobs by recency, most recent first, falling back to ID order
// for jobs that were never backgrounded or stopped.
func (t *Table) live() []*Job {
	var out []*Job
	seen := make(map[*Job]bool)
	for _, j := range t.recent {
		out = append(out, j)
		seen[j] = true
	}
	for i := len(t.jobs) - 1; i >= 0; i-- {
		if j := t.jobs[i]; !seen[j] {
			out = append(out, j)
		}
	}
	return out
}

// Get finds a job by spec: "", "%", "%+" and "%%" select the current job,
// "%-" the previous one, and "%N" or "N" job N.
func (t *Table) Get(spec string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := t.live()
	switch spec {
	case "", "%", "%+", "%%":
		if len(live) == 0 {
			return nil, ErrNoCurrentJob
		}
		return live[0], nil
	case "%-":
		if len(live) < 2 {
			return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
		}
		return live[1], nil
	}

	id, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
	}
	for _, j := range t.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
}

// update applies a wait report to whichever job owns pid.
func (t *Table) update(pid int, ws unix.WaitStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		p := j.process(pid)
		if p == nil {
			continue
		}

		switch {
		case ws.Exited():
			p.exit(ws.ExitStatus())
		case ws.Signaled():
			p.exit(128 + int(ws.Signal()))
		case ws.Stopped():
			p.state = procStopped
		case ws.Continued():
			p.state = procRunning
		}

		before := j.status
		j.recompute()
		if j.status == Stopped && before != Stopped {
			t.touch(j)
		}
		return
	}

	t.log.Printf("reaped unknown process %d", pid)
}

// fail force-finishes a job whose status can no longer be collected.
func (t *Table) fail(j *Job, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log.Printf("job %d (pgid %d): %v", j.ID, j.Pgid, err)
	for _, p := range j.Processes {
		if !p.Exited() {
			p.exit(StatusWaitFailed)
		}
	}
	j.recompute()
}

// WaitForeground blocks until j stops or finishes, treating it as the
// foreground job while it waits.
func (t *Table) WaitForeground(j *Job) Status {
	t.setForeground(j)
	defer t.setForeground(nil)

	for j.Status() == Running {
		wpid, ws, err := t.os.Wait4(-j.Pgid, unix.WUNTRACED)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			t.fail(j, err)
		default:
			t.update(wpid, ws)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if j.status == Stopped {
		j.Background = true
	}
	return j.status
}

// Reap collects status changes from every live process without blocking and
// returns the jobs that changed.
func (t *Table) Reap() []*Job {
	var changed []*Job
	for _, j := range t.Jobs() {
		if j.Status() == Done {
			continue
		}

		for _, p := range j.Processes {
			t.reapProcess(j, p)
		}

		if j.changed {
			changed = append(changed, j)
		}
	}
	return changed
}

func (t *Table) reapProcess(j *Job, p *Process) {
	for !p.Exited() {
		wpid, ws, err := t.os.Wait4(p.Pid, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			t.fail(j, fmt.Errorf("wait %d (%s): %w", p.Pid, p.Name, err))
			return
		case wpid == 0:
			return
		default:
			t.update(wpid, ws)
		}
	}
}

// Notify reports jobs whose status changed since they were last reported and
// drops finished jobs once reported. Foreground jobs that finish are
// reported by their exit status instead.
func (t *Table) Notify(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range append([]*Job(nil), t.jobs...) {
		if !j.changed {
			continue
		}
		j.changed = false

		if j.Background || j.status == Stopped {
			fmt.Fprintln(w, j.describe(t.marker(j), false))
		}
		if j.status == Done {
			t.remove(j)
		}
	}
}

// Prune removes Done jobs without reporting them and returns how many went.
func (t *Table) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for _, j := range append([]*Job(nil), t.jobs...) {
		if j.status == Done {
			j.changed = false
			t.remove(j)
			pruned++
		}
	}
	return pruned
}

// Print writes the jobs listing. If long is set the process group is shown.
func (t *Table) Print(w io.Writer, long bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		fmt.Fprintln(w, j.describe(t.marker(j), long))

		if j.status == Done {
			j.changed = false
			t.remove(j)
		}
	}
}

// Announce prints the "[id] pgid" line shown when a job is backgrounded.
func (t *Table) Announce(w io.Writer, j *Job) {
	fmt.Fprintf(w, "[%d] %d\n", j.ID, j.Pgid)
}

// Continue resumes a stopped (or running) job, in the foreground if fg is
// set. Callers wait on foreground jobs with WaitForeground.
func (t *Table) Continue(j *Job, fg bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if j.status == Done {
		return fmt.Errorf("%%%d: %w", j.ID, ErrJobDone)
	}

	if err := t.os.Kill(-j.Pgid, unix.SIGCONT); err != nil {
		return fmt.Errorf("%%%d: %w", j.ID, err)
	}

	for _, p := range j.Processes {
		if p.state == procStopped {
			p.state = procRunning
		}
	}
	j.recompute()
	j.changed = false
	j.Background = !fg
	if !fg {
		t.touch(j)
	}
	return nil
}

// Signal sends sig to every process in the job.
func (t *Table) Signal(j *Job, sig unix.Signal) error {
	return t.os.Kill(-j.Pgid, sig)
}

// Marker returns the current/previous indicator for j.
func (t *Table) Marker(j *Job) byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.marker(j)
}

// Describe formats j the way the jobs builtin does. If long is set the
// process group is included.
func (t *Table) Describe(j *Job, long bool) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return j.describe(t.marker(j), long)
}
