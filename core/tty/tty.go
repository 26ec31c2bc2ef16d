// Package tty manages the shell's controlling terminal: which process group
// owns it and which modes it is in.
package tty

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// ErrNotTerminal is returned by Open for files that aren't terminals.
var ErrNotTerminal = errors.New("not a terminal")

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

// Terminal is the shell's controlling terminal.
type Terminal struct {
	fd    int
	pgid  int
	modes *unix.Termios
	log   *log.Logger
}

// Open takes control of the terminal f. It waits until the shell is in the
// foreground, puts the shell in its own process group, makes that group the
// terminal's foreground group, and remembers the current modes so they can be
// restored after each job.
func Open(f *os.File, logger *log.Logger) (*Terminal, error) {
	if !IsTerminal(f) {
		return nil, ErrNotTerminal
	}
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	t := &Terminal{fd: int(f.Fd()), log: logger}

	// Started in the background, stop until someone moves us.
	for {
		fg, err := t.foreground()
		if err != nil {
			return nil, err
		}
		pgrp := unix.Getpgrp()
		if fg == pgrp {
			break
		}
		logger.Printf("waiting for the terminal, foreground group is %d", fg)
		unix.Kill(-pgrp, unix.SIGTTIN)
	}

	if pid := os.Getpid(); unix.Getpgrp() != pid {
		// Session leaders already lead their group and can't move.
		if err := unix.Setpgid(0, 0); err != nil && err != unix.EPERM {
			return nil, fmt.Errorf("setpgid: %w", err)
		}
	}
	t.pgid = unix.Getpgrp()

	if err := t.Give(t.pgid); err != nil {
		return nil, err
	}

	modes, err := t.Modes()
	if err != nil {
		return nil, err
	}
	t.modes = modes
	return t, nil
}

// Fd returns the terminal's descriptor number.
func (t *Terminal) Fd() int {
	return t.fd
}

func (t *Terminal) foreground() (int, error) {
	pgid, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, fmt.Errorf("tcgetpgrp: %w", err)
	}
	return pgid, nil
}

// Give makes pgid the terminal's foreground process group.
func (t *Terminal) Give(pgid int) error {
	// Writing to the terminal from a background group raises SIGTTOU.
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("tcsetpgrp %d: %w", pgid, err)
	}
	return nil
}

// Reclaim moves the shell back into the foreground and restores the modes
// saved by Open.
func (t *Terminal) Reclaim() error {
	if err := t.Give(t.pgid); err != nil {
		return err
	}
	return t.SetModes(t.modes)
}

// Modes returns the terminal's current modes.
func (t *Terminal) Modes() (*unix.Termios, error) {
	modes, err := unix.IoctlGetTermios(t.fd, getModesReq)
	if err != nil {
		return nil, fmt.Errorf("tcgetattr: %w", err)
	}
	return modes, nil
}

// SetModes applies modes, typically ones captured from a stopped job.
func (t *Terminal) SetModes(modes *unix.Termios) error {
	if modes == nil {
		return nil
	}

	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	if err := unix.IoctlSetTermios(t.fd, setModesReq, modes); err != nil {
		return fmt.Errorf("tcsetattr: %w", err)
	}
	return nil
}
