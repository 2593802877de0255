// File: api/host.go
// Author: momentics <momentics@gmail.com>
//
// Hooks a host toolkit main loop must offer so the dispatcher API can be
// served by that loop instead of the generic wait primitive.

package api

import "time"

// HostID identifies a source armed in a host loop.
type HostID uint64

// HostLoop is an external main loop (GUI toolkit or similar). All callbacks
// it is given must run synchronously on the goroutine calling Iterate.
type HostLoop interface {
	// AddInput arms fn to run whenever fd is readable.
	AddInput(fd int, fn func()) (HostID, error)
	RemoveInput(id HostID) error

	// AddTimer arms fn to run once after delay.
	AddTimer(delay time.Duration, fn func()) (HostID, error)
	RemoveTimer(id HostID) error

	// AddIdle arms fn to run when the host is idle; the host drops it when fn returns false.
	AddIdle(priority Priority, fn func() bool) (HostID, error)
	RemoveIdle(id HostID) error

	// Iterate runs one iteration of the host loop, blocking as the host sees fit.
	Iterate() error
}
