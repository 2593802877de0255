//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: reactor/reactor_poll.go
// Author: momentics <momentics@gmail.com>
//
// poll(2)-based readiness source without a descriptor ceiling.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-dispatch/api"
)

type pollReactor struct {
	fds    []unix.PollFd
	closed bool
}

// NewPollReactor creates a poll-based readiness source.
func NewPollReactor() (api.ReadinessSource, error) {
	return &pollReactor{fds: make([]unix.PollFd, 0, 16)}, nil
}

// Wait blocks in poll(2). Timeouts are rounded up to whole milliseconds so
// a due deadline is never undershot.
func (p *pollReactor) Wait(set *api.DescriptorSet, timeout time.Duration) (int, error) {
	if p.closed {
		return 0, fmt.Errorf("poll: %w", api.ErrDestroyed)
	}
	p.fds = p.fds[:0]
	for fd := 0; fd <= set.MaxFD(); fd++ {
		var ev int16
		if set.Read.IsSet(fd) {
			ev |= unix.POLLIN
		}
		if set.Write.IsSet(fd) {
			ev |= unix.POLLOUT
		}
		if set.Error.IsSet(fd) {
			ev |= unix.POLLPRI
		}
		if ev != 0 {
			p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: ev})
		}
	}

	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}

	_, err := unix.Poll(p.fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			set.Read.Zero()
			set.Write.Zero()
			set.Error.Zero()
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}

	n := 0
	for _, pfd := range p.fds {
		fd := int(pfd.Fd)
		re := pfd.Revents
		if re&unix.POLLNVAL != 0 {
			return 0, fmt.Errorf("poll: descriptor %d: %w", fd, unix.EBADF)
		}
		readable := re&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
		writable := re&(unix.POLLOUT|unix.POLLERR) != 0
		urgent := re&unix.POLLPRI != 0
		n += keep(&set.Read, fd, readable)
		n += keep(&set.Write, fd, writable)
		n += keep(&set.Error, fd, urgent)
	}
	return n, nil
}

// keep clears fd from s unless it was requested and became ready.
func keep(s *api.FDSet, fd int, ready bool) int {
	if !s.IsSet(fd) {
		return 0
	}
	if !ready {
		s.Clear(fd)
		return 0
	}
	return 1
}

// Close marks the reactor unusable.
func (p *pollReactor) Close() error {
	p.closed = true
	return nil
}
