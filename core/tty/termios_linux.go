package tty

import "golang.org/x/sys/unix"

const (
	getModesReq = unix.TCGETS
	setModesReq = unix.TCSETSW
)
