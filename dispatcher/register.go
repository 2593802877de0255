// File: dispatcher/register.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registration and removal of descriptor, timeout and idle callbacks.

package dispatcher

import (
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

// AddFileDescriptorHandler calls cb whenever fd is readable.
func (d *Dispatcher) AddFileDescriptorHandler(fd int, cb api.FDCallback, userData any) (api.FDHandle, error) {
	const op = "AddFileDescriptorHandler"
	if err := d.accepting(op); err != nil {
		return api.FDHandle{}, err
	}
	if cb == nil {
		return api.FDHandle{}, d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	if err := d.checkDescriptor(op, fd); err != nil {
		return api.FDHandle{}, err
	}
	desc := &descriptor{
		object:   d.newObject(),
		fd:       fd,
		query:    func(set *api.DescriptorSet, _ any) { set.Read.Set(fd) },
		check:    func(set *api.DescriptorSet, _ any) bool { return set.Read.IsSet(fd) },
		dispatch: func(ud any) { cb(fd, ud) },
		userData: userData,
	}
	return d.insertDescriptor(op, desc)
}

// AddDescriptorCallback registers a generic descriptor callback: query
// declares interest before each wait, check claims readiness after it and
// dispatch services the callback on a later step.
func (d *Dispatcher) AddDescriptorCallback(query api.DescriptorQuery, check api.DescriptorCheck,
	dispatch api.DescriptorDispatch, userData any) (api.FDHandle, error) {
	const op = "AddDescriptorCallback"
	if err := d.accepting(op); err != nil {
		return api.FDHandle{}, err
	}
	if query == nil || check == nil || dispatch == nil {
		return api.FDHandle{}, d.reject(api.ErrCodeInvalidArgument, op, "nil query, check or dispatch")
	}
	desc := &descriptor{
		object:   d.newObject(),
		fd:       -1,
		query:    query,
		check:    check,
		dispatch: dispatch,
		userData: userData,
	}
	return d.insertDescriptor(op, desc)
}

func (d *Dispatcher) checkDescriptor(op string, fd int) error {
	if fd < 0 {
		return d.report(api.NewError(api.ErrCodeInvalidArgument, op, "negative descriptor").WithContext("fd", fd))
	}
	if c, ok := d.source.(api.DescriptorCapacity); ok && fd > c.MaxDescriptor() {
		return d.report(api.NewError(api.ErrCodeResourceExhausted, op, "descriptor beyond readiness source capacity").
			WithContext("fd", fd).WithContext("max", c.MaxDescriptor()))
	}
	return nil
}

func (d *Dispatcher) insertDescriptor(op string, desc *descriptor) (api.FDHandle, error) {
	if !d.descriptors.Add(desc) {
		desc.unref()
		return api.FDHandle{}, d.reject(api.ErrCodeResourceExhausted, op, "registry insertion failed")
	}
	d.publish()
	return api.NewFDHandle(desc.id), nil
}

// RemoveFileDescriptorHandler unregisters a descriptor handler or generic
// descriptor callback. A dispatch already under way completes.
func (d *Dispatcher) RemoveFileDescriptorHandler(h api.FDHandle) error {
	const op = "RemoveFileDescriptorHandler"
	if err := d.alive(op); err != nil {
		return err
	}
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	desc, ok := d.descriptors.Remove(h.ID())
	if !ok {
		return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
	}
	desc.pending = false
	desc.unref()
	d.publish()
	return nil
}

// AddTimeoutCallback calls cb once at the absolute wall-clock deadline
// seconds + nanoseconds since the Unix epoch.
func (d *Dispatcher) AddTimeoutCallback(seconds, nanoseconds uint64, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	return d.addTimeout("AddTimeoutCallback", api.Deadline{Seconds: seconds, Nanoseconds: nanoseconds}, cb, userData)
}

// AddTimeoutCallbackRelative calls cb once, seconds + nanoseconds from now.
func (d *Dispatcher) AddTimeoutCallbackRelative(seconds, nanoseconds uint64, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	const op = "AddTimeoutCallbackRelative"
	if err := d.accepting(op); err != nil {
		return api.TimeoutHandle{}, err
	}
	return d.addTimeout(op, d.clock.Now().Add(seconds, nanoseconds), cb, userData)
}

// AddTimeoutAfter calls cb once after delay.
func (d *Dispatcher) AddTimeoutAfter(delay time.Duration, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	const op = "AddTimeoutAfter"
	if delay < 0 {
		return api.TimeoutHandle{}, d.report(api.NewError(api.ErrCodeInvalidArgument, op, "negative delay").WithContext("delay", delay))
	}
	if err := d.accepting(op); err != nil {
		return api.TimeoutHandle{}, err
	}
	return d.addTimeout(op, d.clock.Now().AddDuration(delay), cb, userData)
}

func (d *Dispatcher) addTimeout(op string, deadline api.Deadline, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	if err := d.accepting(op); err != nil {
		return api.TimeoutHandle{}, err
	}
	if cb == nil {
		return api.TimeoutHandle{}, d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	t := &timeout{
		object:   d.newObject(),
		deadline: deadline.Normalize(),
		cb:       cb,
		userData: userData,
	}
	if !d.timeouts.Push(t) {
		t.unref()
		return api.TimeoutHandle{}, d.reject(api.ErrCodeResourceExhausted, op, "registry insertion failed")
	}
	d.publish()
	return api.NewTimeoutHandle(t.id), nil
}

// RemoveTimeoutCallback cancels a timeout that has not fired yet.
func (d *Dispatcher) RemoveTimeoutCallback(h api.TimeoutHandle) error {
	const op = "RemoveTimeoutCallback"
	if err := d.alive(op); err != nil {
		return err
	}
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	t, ok := d.timeouts.Remove(h.ID())
	if !ok {
		return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
	}
	t.unref()
	d.publish()
	return nil
}

// AddIdleCallback calls cb when nothing else is due until it returns false.
func (d *Dispatcher) AddIdleCallback(cb api.IdleCallback, userData any, priority api.Priority) (api.IdleHandle, error) {
	const op = "AddIdleCallback"
	i, err := d.newIdle(op, cb, userData, priority)
	if err != nil {
		return api.IdleHandle{}, err
	}
	if !d.idles.Push(i) {
		i.unref()
		return api.IdleHandle{}, d.reject(api.ErrCodeResourceExhausted, op, "registry insertion failed")
	}
	d.publish()
	return api.NewIdleHandle(i.id), nil
}

// SetSpecialIdleCallback installs the housekeeping callback, releasing any
// previous one. It runs on the next step and again after later dispatches
// until it returns false.
func (d *Dispatcher) SetSpecialIdleCallback(cb api.IdleCallback, userData any, priority api.Priority) (api.IdleHandle, error) {
	i, err := d.newIdle("SetSpecialIdleCallback", cb, userData, priority)
	if err != nil {
		return api.IdleHandle{}, err
	}
	old := d.special
	d.special, d.specialPending = i, true
	if old != nil {
		old.unref()
	}
	d.publish()
	return api.NewIdleHandle(i.id), nil
}

func (d *Dispatcher) newIdle(op string, cb api.IdleCallback, userData any, priority api.Priority) (*idle, error) {
	if err := d.accepting(op); err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	if !priority.Valid() {
		return nil, d.report(api.NewError(api.ErrCodeInvalidArgument, op, "unknown priority").WithContext("priority", int(priority)))
	}
	return &idle{
		object:   d.newObject(),
		priority: priority,
		seq:      d.nextSeq(),
		cb:       cb,
		userData: userData,
	}, nil
}

// RemoveIdleCallback unregisters an idle callback, or clears the special
// idle callback when given its handle.
func (d *Dispatcher) RemoveIdleCallback(h api.IdleHandle) error {
	const op = "RemoveIdleCallback"
	if err := d.alive(op); err != nil {
		return err
	}
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	if i, ok := d.idles.Remove(h.ID()); ok {
		i.unref()
		d.publish()
		return nil
	}
	if sp := d.special; sp != nil && sp.id == h.ID() {
		d.special, d.specialPending = nil, false
		sp.unref()
		d.publish()
		return nil
	}
	return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
}
