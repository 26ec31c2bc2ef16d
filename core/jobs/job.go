package jobs

import (
	"fmt"
	"os"
	"strings"
)

// Status is the state of a job.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type procState int

const (
	procRunning procState = iota
	procStopped
	procExited
)

// Process is one OS process belonging to a job.
type Process struct {
	// Pid is the OS process ID.
	Pid int
	// Stage is the index of the pipeline stage the process runs.
	Stage int
	// Name is the program name, used in diagnostics.
	Name string

	handle *os.Process
	state  procState
	code   int
}

// NewProcess wraps a started OS process. Handle may be nil.
func NewProcess(handle *os.Process, stage int, name string) *Process {
	p := &Process{Stage: stage, Name: name, handle: handle}
	if handle != nil {
		p.Pid = handle.Pid
	}
	return p
}

// Exited is true once the process has been reaped.
func (p *Process) Exited() bool {
	return p.state == procExited
}

// Stopped is true if the process was last reported stopped.
func (p *Process) Stopped() bool {
	return p.state == procStopped
}

func (p *Process) exit(code int) {
	p.state = procExited
	p.code = code
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
}

// Job is a launched pipeline tracked as a unit.
type Job struct {
	// ID is the small number users refer to the job by, e.g. %1.
	ID int
	// Pgid is the process group every process in the job belongs to.
	Pgid int
	// Command is the text displayed for the job.
	Command string
	// Background is true if the job isn't holding the terminal.
	Background bool
	// Processes holds one entry per launched stage, in pipeline order.
	Processes []*Process
	// ExitCodes holds one entry per pipeline stage. Stages that never launched
	// are filled in by the creator of the job.
	ExitCodes []int

	status Status
	// changed is set when the status changed and hasn't been reported.
	changed bool
}

// Status returns the job's state.
func (j *Job) Status() Status {
	return j.status
}

// ExitStatus is the exit code of the last pipeline stage.
func (j *Job) ExitStatus() int {
	if len(j.ExitCodes) == 0 {
		return 0
	}
	return j.ExitCodes[len(j.ExitCodes)-1]
}

func (j *Job) process(pid int) *Process {
	for _, p := range j.Processes {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

// recompute derives the job status from its processes. Done is terminal.
func (j *Job) recompute() {
	if j.status == Done {
		return
	}

	running, stopped := 0, 0
	for _, p := range j.Processes {
		switch p.state {
		case procRunning:
			running++
		case procStopped:
			stopped++
		}
	}

	next := j.status
	switch {
	case running == 0 && stopped == 0:
		next = Done
		for _, p := range j.Processes {
			if p.Stage >= 0 && p.Stage < len(j.ExitCodes) {
				j.ExitCodes[p.Stage] = p.code
			}
		}
	case running == 0:
		next = Stopped
	default:
		next = Running
	}

	if next != j.status {
		j.status = next
		j.changed = true
	}
}

// describe formats the job like the jobs builtin and completion notices. If
// long is set the process group is included.
func (j *Job) describe(marker byte, long bool) string {
	state := j.status.String()
	if j.status == Done && j.ExitStatus() != 0 {
		state = fmt.Sprintf("Exit %d", j.ExitStatus())
	}

	cmd := j.Command
	if j.Background && j.status == Running && !strings.HasSuffix(cmd, "&") {
		cmd += " &"
	}
	if long {
		return fmt.Sprintf("[%d]%c  %d %-24s%s", j.ID, marker, j.Pgid, state, cmd)
	}
	return fmt.Sprintf("[%d]%c  %-24s%s", j.ID, marker, state, cmd)
}
