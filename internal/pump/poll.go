package pump

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// waitReadable reports whether f has data (or a hang-up) to read
// within timeout.
func waitReadable(f *os.File, timeout time.Duration) (bool, error) {
	return pollFile(f, unix.POLLIN, timeout)
}

// waitWritable reports whether f can accept a write within timeout.
func waitWritable(f *os.File, timeout time.Duration) (bool, error) {
	return pollFile(f, unix.POLLOUT, timeout)
}

// pollFile waits on a single descriptor with poll(2).  Hang-up and
// error conditions count as ready so the following read or write
// surfaces them.  An interrupted poll is reported as not ready.
func pollFile(f *os.File, events int16, timeout time.Duration) (bool, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return false, err
	}

	var (
		count   int
		revents int16
		perr    error
	)
	cerr := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		count, perr = unix.Poll(fds, int(timeout.Milliseconds()))
		revents = fds[0].Revents
	})
	if cerr != nil {
		return false, cerr
	}
	if perr != nil {
		if perr == unix.EINTR {
			return false, nil
		}
		return false, perr
	}
	if count == 0 {
		return false, nil
	}
	if revents&unix.POLLNVAL != 0 {
		return false, fmt.Errorf("poll: invalid descriptor")
	}
	return true, nil
}
