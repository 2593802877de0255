// File: dispatcher/object.go
// Author: momentics <momentics@gmail.com>
//
// Reference-counted registration objects. A registry holds one reference
// and an in-flight dispatch holds another, so a callback that removes its
// own registration keeps running on a live object.

package dispatcher

import (
	"github.com/momentics/hioload-dispatch/api"
)

type object struct {
	id    uint64
	refs  int
	owner *Dispatcher
}

func (o *object) Key() uint64 { return o.id }

func (o *object) retain() { o.refs++ }

// unref reports whether the last reference was dropped.
func (o *object) unref() bool {
	o.refs--
	switch {
	case o.refs == 0:
		o.owner.live--
		return true
	case o.refs < 0:
		panic("dispatcher: registration object released twice")
	}
	return false
}

// descriptor is a descriptor callback; plain descriptor handlers are
// descriptors whose query and check test a single read descriptor.
type descriptor struct {
	object
	fd       int // -1 for generic callbacks
	query    api.DescriptorQuery
	check    api.DescriptorCheck
	dispatch api.DescriptorDispatch
	userData any
	pending  bool
}

func (d *descriptor) unref() {
	if d.object.unref() {
		d.query, d.check, d.dispatch, d.userData = nil, nil, nil, nil
		d.pending = false
	}
}

type timeout struct {
	object
	deadline api.Deadline
	cb       api.TimeoutCallback
	userData any
}

func (t *timeout) unref() {
	if t.object.unref() {
		t.cb, t.userData = nil, nil
	}
}

// earlierDeadline orders timeouts by deadline, then identity.
func earlierDeadline(a, b *timeout) bool {
	if c := a.deadline.Compare(b.deadline); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

type idle struct {
	object
	priority api.Priority
	seq      uint64
	cb       api.IdleCallback
	userData any
}

func (i *idle) unref() {
	if i.object.unref() {
		i.cb, i.userData = nil, nil
	}
}

// higherPriority orders idle callbacks by priority, then sequence.
func higherPriority(a, b *idle) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

func (d *Dispatcher) newObject() object {
	d.nextID++
	d.live++
	return object{id: d.nextID, refs: 1, owner: d}
}

func (d *Dispatcher) nextSeq() uint64 {
	d.seq++
	return d.seq
}
