package tty

import (
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how long Pause waits for an in-flight read, in ms.
const pollInterval = 50

// Gate is an input reader that only consumes bytes while open. The line
// editor reads through it in a background goroutine, so it is paused while a
// job owns the terminal; otherwise keystrokes meant for the job would be
// swallowed.
type Gate struct {
	fd int

	mu     sync.Mutex
	cond   *sync.Cond
	open   bool
	closed bool
}

// NewGate creates a closed gate over f.
func NewGate(f *os.File) *Gate {
	g := &Gate{fd: int(f.Fd())}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Resume lets reads through.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	g.cond.Broadcast()
}

// Pause blocks reads. When it returns no read is in progress.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
}

// Read implements io.Reader.
func (g *Gate) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		for !g.open && !g.closed {
			g.cond.Wait()
		}
		if g.closed {
			return 0, io.EOF
		}

		ready, err := g.poll()
		if err != nil {
			return 0, err
		}
		if !ready {
			// Give Pause and Close a chance to run.
			g.mu.Unlock()
			runtime.Gosched()
			g.mu.Lock()
			continue
		}

		for {
			n, err := unix.Read(g.fd, p)
			switch {
			case err == unix.EINTR:
				continue
			case err != nil:
				return 0, err
			case n == 0:
				return 0, io.EOF
			default:
				return n, nil
			}
		}
	}
}

func (g *Gate) poll() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(g.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollInterval)
	switch {
	case err == unix.EINTR:
		return false, nil
	case err != nil:
		return false, err
	}
	return n > 0, nil
}

// Close makes pending and future reads return io.EOF. The file isn't closed.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cond.Broadcast()
	return nil
}
