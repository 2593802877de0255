// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations: priorities, handles and callback signatures.

package api

import "fmt"

// Priority orders idle callbacks; higher values run first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Valid reports whether p is one of the declared priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// FDHandle identifies a registered descriptor callback. The zero value is the null handle.
type FDHandle struct{ id uint64 }

// TimeoutHandle identifies a registered timeout callback. The zero value is the null handle.
type TimeoutHandle struct{ id uint64 }

// IdleHandle identifies a registered idle callback. The zero value is the null handle.
type IdleHandle struct{ id uint64 }

// NewFDHandle wraps an identity generated by a dispatcher implementation.
func NewFDHandle(id uint64) FDHandle { return FDHandle{id: id} }

// NewTimeoutHandle wraps an identity generated by a dispatcher implementation.
func NewTimeoutHandle(id uint64) TimeoutHandle { return TimeoutHandle{id: id} }

// NewIdleHandle wraps an identity generated by a dispatcher implementation.
func NewIdleHandle(id uint64) IdleHandle { return IdleHandle{id: id} }

func (h FDHandle) ID() uint64      { return h.id }
func (h TimeoutHandle) ID() uint64 { return h.id }
func (h IdleHandle) ID() uint64    { return h.id }

func (h FDHandle) IsNull() bool      { return h.id == 0 }
func (h TimeoutHandle) IsNull() bool { return h.id == 0 }
func (h IdleHandle) IsNull() bool    { return h.id == 0 }

// FDCallback runs when the descriptor it was registered for is readable.
type FDCallback func(fd int, userData any)

// TimeoutCallback runs once when its deadline has passed.
type TimeoutCallback func(userData any)

// IdleCallback runs when no other work is due. Returning true keeps it
// registered, false removes it.
type IdleCallback func(userData any) bool

// DescriptorQuery adds the descriptors a callback is interested in to set.
type DescriptorQuery func(set *DescriptorSet, userData any)

// DescriptorCheck reports whether the callback became ready after a wait.
type DescriptorCheck func(set *DescriptorSet, userData any) bool

// DescriptorDispatch services a ready descriptor callback.
type DescriptorDispatch func(userData any)
