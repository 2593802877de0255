// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package host

import (
	"errors"

	"github.com/momentics/hioload-dispatch/api"
)

// DoOneEvent runs one host iteration.
func (d *Dispatcher) DoOneEvent() error {
	const op = "DoOneEvent"
	if d.destroyed {
		return d.reject(api.ErrCodeDestroyed, op, "")
	}
	if d.inStep {
		return d.reject(api.ErrCodeReentrant, op, "called from inside a callback")
	}
	d.drained = false
	if d.Registered() == 0 {
		d.drained = true
		if !d.warnedEmpty {
			d.warnedEmpty = true
			d.logger.Printf("[host %s] nothing registered, step is a no-op", d.name)
		}
		return nil
	}
	d.inStep = true
	err := d.loop.Iterate()
	d.inStep = false
	if d.destroyPending {
		d.teardown()
	}
	if err != nil {
		return d.report(api.WrapError(api.ErrCodeWaitFailed, op, err))
	}
	return nil
}

// MainLoop runs DoOneEvent until EndMainLoop is called, the dispatcher is
// destroyed, or nothing is left registered.
func (d *Dispatcher) MainLoop() error {
	const op = "MainLoop"
	if d.destroyed {
		return d.reject(api.ErrCodeDestroyed, op, "")
	}
	if d.inStep {
		return d.reject(api.ErrCodeReentrant, op, "called from inside a callback")
	}
	for d.cont.Load() {
		err := d.DoOneEvent()
		if d.destroyed || d.drained {
			return nil
		}
		if err != nil && errors.Is(err, api.ErrWaitFailed) {
			return err
		}
	}
	return nil
}

// EndMainLoop makes MainLoop return after the current iteration.
func (d *Dispatcher) EndMainLoop() error {
	d.cont.Store(false)
	return nil
}

// Destroy disarms every host source. Called from a callback it takes
// effect when the iteration returns.
func (d *Dispatcher) Destroy() error {
	if d.destroyed {
		return d.reject(api.ErrCodeDestroyed, "Destroy", "")
	}
	if d.inStep {
		d.destroyPending = true
		return nil
	}
	d.teardown()
	return nil
}

func (d *Dispatcher) teardown() {
	d.destroyed, d.destroyPending = true, false
	d.cont.Store(false)
	for id, hid := range d.inputs {
		_ = d.loop.RemoveInput(hid)
		delete(d.inputs, id)
	}
	for id, hid := range d.timers {
		_ = d.loop.RemoveTimer(hid)
		delete(d.timers, id)
	}
	for id, hid := range d.idles {
		_ = d.loop.RemoveIdle(hid)
		delete(d.idles, id)
	}
	if sp := d.special; sp != nil {
		d.disarmSpecial(sp)
		d.special = nil
	}
}
