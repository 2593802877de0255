// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract readiness primitive the dispatcher blocks on,
// independent of the polling mechanism (select, poll, host toolkit).

package api

import "time"

// ReadinessSource is the one blocking call of a dispatcher.
type ReadinessSource interface {
	// Wait blocks until a descriptor in set is ready or timeout elapses.
	// A negative timeout blocks indefinitely. On return set holds only the
	// ready descriptors and n is their count; n == 0 means the timeout
	// elapsed. A non-nil error leaves set unspecified.
	Wait(set *DescriptorSet, timeout time.Duration) (n int, err error)

	// Close releases backend resources.
	Close() error
}

// DescriptorCapacity is implemented by sources that cannot wait on
// arbitrarily large descriptor numbers.
type DescriptorCapacity interface {
	// MaxDescriptor returns the highest descriptor the source accepts.
	MaxDescriptor() int
}
