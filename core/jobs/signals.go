package jobs

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalPolicy keeps job-control signals away from the shell itself and
// forwards the terminal-generated ones to the foreground job.
//
// Signals are caught rather than ignored so processes started afterwards get
// default dispositions.
type SignalPolicy struct {
	table *Table
	sigs  chan os.Signal
	done  chan struct{}
	once  sync.Once

	// forwarded is called after each forwarded signal, tests hook it.
	forwarded func(pgid int, sig unix.Signal)
}

// caught lists the signals the shell never acts on directly.
var caught = []os.Signal{
	syscall.SIGINT,
	syscall.SIGQUIT,
	syscall.SIGTSTP,
	syscall.SIGTTIN,
}

// InstallSignalPolicy starts catching job-control signals. If interactive is
// set SIGTERM is caught too so a stray kill doesn't take down the session.
func InstallSignalPolicy(table *Table, interactive bool) *SignalPolicy {
	sp := &SignalPolicy{
		table: table,
		sigs:  make(chan os.Signal, 8),
		done:  make(chan struct{}),
	}

	sigs := append([]os.Signal(nil), caught...)
	if interactive {
		sigs = append(sigs, syscall.SIGTERM)
	}
	signal.Notify(sp.sigs, sigs...)

	go sp.loop()
	return sp
}

func (sp *SignalPolicy) loop() {
	for {
		select {
		case <-sp.done:
			return
		case s := <-sp.sigs:
			sig, ok := s.(syscall.Signal)
			if !ok {
				continue
			}
			switch sig {
			case syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP:
			default:
				continue
			}

			pgid, ok := sp.table.Foreground()
			if !ok {
				continue
			}
			if err := sp.table.os.Kill(-pgid, unix.Signal(sig)); err != nil {
				sp.table.log.Printf("forwarding %v to %d: %v", sig, pgid, err)
			}
			if sp.forwarded != nil {
				sp.forwarded(pgid, unix.Signal(sig))
			}
		}
	}
}

// Stop restores default dispositions.
func (sp *SignalPolicy) Stop() {
	sp.once.Do(func() {
		signal.Stop(sp.sigs)
		close(sp.done)
	})
}
