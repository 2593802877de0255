// File: dispatcher/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"errors"

	"github.com/momentics/hioload-dispatch/api"
)

// MainLoop runs DoOneEvent until EndMainLoop is called, the dispatcher is
// destroyed, or a step finds nothing registered. Registration is only legal
// from the loop's own goroutine, so an empty dispatcher can gain no new work.
// Step failures have already been reported; a wait failure ends the loop
// only with Config.StopOnWaitError.
func (d *Dispatcher) MainLoop() error {
	const op = "MainLoop"
	if err := d.alive(op); err != nil {
		return err
	}
	if d.inStep {
		return d.reject(api.ErrCodeReentrant, op, "called from inside a callback")
	}
	for d.cont.Load() {
		err := d.DoOneEvent()
		if d.destroyed {
			return nil
		}
		if d.drained {
			d.logger.Printf("[dispatcher %s] nothing left to dispatch, main loop ends", d.cfg.Name)
			return nil
		}
		if err != nil && d.cfg.StopOnWaitError && errors.Is(err, api.ErrWaitFailed) {
			return err
		}
	}
	return nil
}

// EndMainLoop makes MainLoop return after the current step. It is the only
// method safe to call from another goroutine.
func (d *Dispatcher) EndMainLoop() error {
	d.cont.Store(false)
	return nil
}

// ProcessIdleEvent runs the top idle callback without waiting and reports
// whether idle work remains. Host loops use it to drive idle work from
// their own idle hook.
func (d *Dispatcher) ProcessIdleEvent() (more bool, err error) {
	if err := d.enter("ProcessIdleEvent"); err != nil {
		return false, err
	}
	defer d.leave()
	if top, ok := d.idles.Peek(); ok {
		d.runIdle(top)
	}
	return d.idles.Len() > 0, nil
}
