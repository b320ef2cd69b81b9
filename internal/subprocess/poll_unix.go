//go:build unix

package subprocess

import (
	stderrors "errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const platformSupported = true

// sysProcAttr starts the backend in its own process group so a kill reaches
// anything it spawned.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(pid int) error {
	err := unix.Kill(-pid, unix.SIGKILL)
	if stderrors.Is(err, unix.ESRCH) {
		return nil
	}

	return err
}

// pollReadable runs a zero-timeout poll(2) on f. A hung-up pipe counts as
// readable; the following read reports EOF.
func pollReadable(f *os.File) (bool, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return false, err
	}

	var (
		ready   bool
		pollErr error
	)

	ctrlErr := conn.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

		for {
			n, err := unix.Poll(fds, 0)
			if stderrors.Is(err, unix.EINTR) {
				continue
			}

			pollErr = err
			ready = n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0

			return
		}
	})
	if ctrlErr != nil {
		return false, ctrlErr
	}

	return ready, pollErr
}
