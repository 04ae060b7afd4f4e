//go:build linux

package transport

import (
	"golang.org/x/sys/unix"
)

// tuneListenerFD applies SO_REUSEPORT so multiple worker processes can
// share one listen address, and TCP_NODELAY-by-default semantics are
// left to each accepted connection (applied in tuneConnFD). The
// teacher's socket/tuning_linux.go gestured at "you'd use
// golang.org/x/sys/unix for proper ... access" without ever importing
// it; this finishes that thought with a real syscall.
func tuneListenerFD(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

func tuneConnFD(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}
