// Package netpoll wraps POSIX poll(2) as the dispatcher's readiness
// demultiplexer: a short poll timeout run every cycle, where timeouts
// are routine rather than errors.
//
// It targets unix.Poll rather than epoll because the dispatcher
// already rebuilds its candidate fd set from scratch every cycle —
// poll(2)'s flat fd-array call matches that one-shot-per-cycle pattern
// more directly than epoll's persistent interest list would, and
// unix.Poll is portable across the BSD/Linux family, where raw epoll
// is Linux-only.
package netpoll

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller demultiplexes read-readiness across a set of fds with one
// poll(2) call per Wait.
type Poller struct {
	pollfds []unix.PollFd
}

// New creates an empty Poller.
func New() *Poller {
	return &Poller{}
}

// Wait polls fds for read-readiness, blocking up to timeout. poll(2)
// takes whole milliseconds, so the timeout is truncated to a
// millisecond count and any positive sub-millisecond timeout waits up
// to 1ms; with no fds, Wait sleeps for the exact timeout. It returns
// the subset of fds that are ready to read. A timeout with no ready
// fds is not an error.
func (p *Poller) Wait(fds []int, timeout time.Duration) ([]int, error) {
	if len(fds) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}

	if cap(p.pollfds) < len(fds) {
		p.pollfds = make([]unix.PollFd, len(fds))
	}
	p.pollfds = p.pollfds[:len(fds)]
	for i, fd := range fds {
		p.pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	timeoutMs := int(timeout / time.Millisecond)
	if timeoutMs <= 0 && timeout > 0 {
		timeoutMs = 1
	}

	n, err := unix.Poll(p.pollfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	ready := make([]int, 0, n)
	for _, pfd := range p.pollfds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, int(pfd.Fd))
		}
	}
	return ready, nil
}
