// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package host

import (
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

// AddFileDescriptorHandler arms a host input source that calls cb when fd is readable.
func (d *Dispatcher) AddFileDescriptorHandler(fd int, cb api.FDCallback, userData any) (api.FDHandle, error) {
	const op = "AddFileDescriptorHandler"
	if err := d.accepting(op); err != nil {
		return api.FDHandle{}, err
	}
	if cb == nil {
		return api.FDHandle{}, d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	if fd < 0 {
		return api.FDHandle{}, d.report(api.NewError(api.ErrCodeInvalidArgument, op, "negative descriptor").WithContext("fd", fd))
	}
	id := d.id()
	hid, err := d.loop.AddInput(fd, func() {
		cb(fd, userData)
		d.fired(false)
	})
	if err != nil {
		return api.FDHandle{}, d.report(api.WrapError(api.ErrCodeResourceExhausted, op, err))
	}
	d.inputs[id] = hid
	return api.NewFDHandle(id), nil
}

// RemoveFileDescriptorHandler disarms the input source behind h.
func (d *Dispatcher) RemoveFileDescriptorHandler(h api.FDHandle) error {
	const op = "RemoveFileDescriptorHandler"
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	hid, ok := d.inputs[h.ID()]
	if !ok {
		return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
	}
	delete(d.inputs, h.ID())
	if err := d.loop.RemoveInput(hid); err != nil {
		return d.report(api.WrapError(api.ErrCodeNotRegistered, op, err))
	}
	return nil
}

// AddTimeoutCallback arms a host timer for the absolute deadline seconds + nanoseconds.
func (d *Dispatcher) AddTimeoutCallback(seconds, nanoseconds uint64, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	deadline := api.Deadline{Seconds: seconds, Nanoseconds: nanoseconds}
	return d.addTimer("AddTimeoutCallback", deadline.Until(d.clock.Now()), cb, userData)
}

// AddTimeoutCallbackRelative arms a host timer seconds + nanoseconds from now.
func (d *Dispatcher) AddTimeoutCallbackRelative(seconds, nanoseconds uint64, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	now := d.clock.Now()
	return d.addTimer("AddTimeoutCallbackRelative", now.Add(seconds, nanoseconds).Until(now), cb, userData)
}

// AddTimeoutAfter calls cb once after delay.
func (d *Dispatcher) AddTimeoutAfter(delay time.Duration, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	if delay < 0 {
		return api.TimeoutHandle{}, d.reject(api.ErrCodeInvalidArgument, "AddTimeoutAfter", "negative delay")
	}
	return d.addTimer("AddTimeoutAfter", delay, cb, userData)
}

func (d *Dispatcher) addTimer(op string, delay time.Duration, cb api.TimeoutCallback, userData any) (api.TimeoutHandle, error) {
	if err := d.accepting(op); err != nil {
		return api.TimeoutHandle{}, err
	}
	if cb == nil {
		return api.TimeoutHandle{}, d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	id := d.id()
	hid, err := d.loop.AddTimer(delay, func() {
		delete(d.timers, id)
		cb(userData)
		d.fired(false)
	})
	if err != nil {
		return api.TimeoutHandle{}, d.report(api.WrapError(api.ErrCodeResourceExhausted, op, err))
	}
	d.timers[id] = hid
	return api.NewTimeoutHandle(id), nil
}

// RemoveTimeoutCallback disarms a timer that has not fired yet.
func (d *Dispatcher) RemoveTimeoutCallback(h api.TimeoutHandle) error {
	const op = "RemoveTimeoutCallback"
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	hid, ok := d.timers[h.ID()]
	if !ok {
		return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
	}
	delete(d.timers, h.ID())
	if err := d.loop.RemoveTimer(hid); err != nil {
		return d.report(api.WrapError(api.ErrCodeNotRegistered, op, err))
	}
	return nil
}

func (d *Dispatcher) validIdle(op string, cb api.IdleCallback, priority api.Priority) error {
	if err := d.accepting(op); err != nil {
		return err
	}
	if cb == nil {
		return d.reject(api.ErrCodeInvalidArgument, op, "nil callback")
	}
	if !priority.Valid() {
		return d.report(api.NewError(api.ErrCodeInvalidArgument, op, "unknown priority").WithContext("priority", int(priority)))
	}
	return nil
}

// AddIdleCallback arms a host idle source at priority.
func (d *Dispatcher) AddIdleCallback(cb api.IdleCallback, userData any, priority api.Priority) (api.IdleHandle, error) {
	const op = "AddIdleCallback"
	if err := d.validIdle(op, cb, priority); err != nil {
		return api.IdleHandle{}, err
	}
	id := d.id()
	hid, err := d.loop.AddIdle(priority, func() bool {
		keep := cb(userData)
		_, registered := d.idles[id]
		if !keep && registered {
			delete(d.idles, id)
		}
		d.fired(true)
		return keep && registered
	})
	if err != nil {
		return api.IdleHandle{}, d.report(api.WrapError(api.ErrCodeResourceExhausted, op, err))
	}
	d.idles[id] = hid
	return api.NewIdleHandle(id), nil
}

// SetSpecialIdleCallback replaces the special idle callback, armed after other callbacks run.
func (d *Dispatcher) SetSpecialIdleCallback(cb api.IdleCallback, userData any, priority api.Priority) (api.IdleHandle, error) {
	if err := d.validIdle("SetSpecialIdleCallback", cb, priority); err != nil {
		return api.IdleHandle{}, err
	}
	if old := d.special; old != nil {
		d.disarmSpecial(old)
	}
	sp := &special{id: d.id(), priority: priority, cb: cb, userData: userData}
	d.special = sp
	d.armSpecial(sp)
	return api.NewIdleHandle(sp.id), nil
}

// RemoveIdleCallback disarms an idle callback or clears the special one.
func (d *Dispatcher) RemoveIdleCallback(h api.IdleHandle) error {
	const op = "RemoveIdleCallback"
	if h.IsNull() {
		return d.reject(api.ErrCodeInvalidArgument, op, "null handle")
	}
	if hid, ok := d.idles[h.ID()]; ok {
		delete(d.idles, h.ID())
		if err := d.loop.RemoveIdle(hid); err != nil {
			return d.report(api.WrapError(api.ErrCodeNotRegistered, op, err))
		}
		return nil
	}
	if sp := d.special; sp != nil && sp.id == h.ID() {
		d.disarmSpecial(sp)
		d.special = nil
		return nil
	}
	return d.report(api.NewError(api.ErrCodeNotRegistered, op, "").WithContext("handle", h.ID()))
}
