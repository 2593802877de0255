// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"errors"
	"sync"
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

// ErrWouldBlock is returned by Readiness.Wait when asked to block forever
// with nothing ready, which in a test would hang.
var ErrWouldBlock = errors.New("fake: wait would block forever")

// Readiness is a scripted api.ReadinessSource. Descriptors are reported
// ready while marked so (level-triggered). When nothing is ready a finite
// wait advances the attached clock by the full timeout.
type Readiness struct {
	mu       sync.Mutex
	clock    *Clock
	readable map[int]bool
	writable map[int]bool
	failNext error
	timeouts []time.Duration
	interest []int
	capacity int
	closed   bool
}

// NewReadiness creates a source; clock may be nil.
func NewReadiness(clock *Clock) *Readiness {
	return &Readiness{
		clock:    clock,
		readable: make(map[int]bool),
		writable: make(map[int]bool),
	}
}

// SetReadable marks fd readable (or not).
func (r *Readiness) SetReadable(fd int, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readable[fd] = ready
}

// SetWritable marks fd writable (or not).
func (r *Readiness) SetWritable(fd int, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writable[fd] = ready
}

// FailNext makes the next Wait return err.
func (r *Readiness) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

// SetCapacity makes the source report api.DescriptorCapacity.
func (r *Readiness) SetCapacity(maxFD int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacity = maxFD
}

// MaxDescriptor implements api.DescriptorCapacity; zero capacity means unlimited.
func (r *Readiness) MaxDescriptor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capacity == 0 {
		return int(^uint(0) >> 1)
	}
	return r.capacity
}

// Timeouts returns every timeout Wait was called with.
func (r *Readiness) Timeouts() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.timeouts...)
}

// WaitCount returns the number of Wait calls.
func (r *Readiness) WaitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timeouts)
}

// LastInterest returns the read descriptors of the most recent Wait.
func (r *Readiness) LastInterest() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.interest...)
}

// Wait implements api.ReadinessSource.
func (r *Readiness) Wait(set *api.DescriptorSet, timeout time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = append(r.timeouts, timeout)
	r.interest = r.interest[:0]
	set.Read.Each(func(fd int) { r.interest = append(r.interest, fd) })
	if r.closed {
		return 0, api.ErrDestroyed
	}
	if err := r.failNext; err != nil {
		r.failNext = nil
		return 0, err
	}
	n := filter(&set.Read, r.readable) + filter(&set.Write, r.writable)
	set.Error.Zero()
	if n > 0 {
		return n, nil
	}
	if timeout < 0 {
		return 0, ErrWouldBlock
	}
	if r.clock != nil {
		r.clock.Advance(timeout)
	}
	return 0, nil
}

// Closed reports whether Close was called.
func (r *Readiness) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close implements api.ReadinessSource.
func (r *Readiness) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func filter(s *api.FDSet, ready map[int]bool) int {
	var drop []int
	n := 0
	s.Each(func(fd int) {
		if ready[fd] {
			n++
		} else {
			drop = append(drop, fd)
		}
	})
	for _, fd := range drop {
		s.Clear(fd)
	}
	return n
}
