//go:build darwin || freebsd || netbsd || openbsd

package tty

import "golang.org/x/sys/unix"

const (
	getModesReq = unix.TIOCGETA
	setModesReq = unix.TIOCSETAW
)
