//go:build !linux

package transport

// tuneListenerFD/tuneConnFD are no-ops off Linux; SO_REUSEPORT and the
// rest of the fd-level tuning are Linux-specific the way the teacher's
// socket/tuning_linux.go + tuning_other.go split them.
func tuneListenerFD(fd int) error { return nil }
func tuneConnFD(fd int) error     { return nil }
