//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: reactor/reactor_select.go
// Author: momentics <momentics@gmail.com>
//
// select(2)-based readiness source.

package reactor

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-dispatch/api"
)

// fdSetSize is the number of descriptors a unix.FdSet can hold.
const fdSetSize = int(unsafe.Sizeof(unix.FdSet{})) * 8

// selectReactor waits with select(2). It holds no kernel resources.
type selectReactor struct {
	r, w, e unix.FdSet
	closed  bool
}

// NewSelectReactor creates a select-based readiness source.
func NewSelectReactor() (api.ReadinessSource, error) {
	return &selectReactor{}, nil
}

// MaxDescriptor implements api.DescriptorCapacity.
func (s *selectReactor) MaxDescriptor() int { return fdSetSize - 1 }

// Wait blocks in select(2) until a descriptor in set is ready or timeout elapses.
func (s *selectReactor) Wait(set *api.DescriptorSet, timeout time.Duration) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("select: %w", api.ErrDestroyed)
	}
	maxFD := set.MaxFD()
	if maxFD >= fdSetSize {
		return 0, fmt.Errorf("select: descriptor %d exceeds FD_SETSIZE %d: %w", maxFD, fdSetSize, api.ErrResourceExhausted)
	}
	toFdSet(&set.Read, &s.r)
	toFdSet(&set.Write, &s.w)
	toFdSet(&set.Error, &s.e)

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(maxFD+1, &s.r, &s.w, &s.e, tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			set.Read.Zero()
			set.Write.Zero()
			set.Error.Zero()
			return 0, nil // interrupted by signal, nothing ready
		}
		return 0, fmt.Errorf("select: %w", err)
	}
	fromFdSet(&set.Read, &s.r)
	fromFdSet(&set.Write, &s.w)
	fromFdSet(&set.Error, &s.e)
	return n, nil
}

// Close marks the reactor unusable.
func (s *selectReactor) Close() error {
	s.closed = true
	return nil
}

func toFdSet(src *api.FDSet, dst *unix.FdSet) {
	dst.Zero()
	src.Each(func(fd int) { dst.Set(fd) })
}

// fromFdSet keeps in src only the descriptors select left set in ready.
func fromFdSet(src *api.FDSet, ready *unix.FdSet) {
	var drop []int
	src.Each(func(fd int) {
		if !ready.IsSet(fd) {
			drop = append(drop, fd)
		}
	})
	for _, fd := range drop {
		src.Clear(fd)
	}
}
