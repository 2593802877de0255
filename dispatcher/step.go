// File: dispatcher/step.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The step function: one unit of work per call.

package dispatcher

import (
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

type source int

const (
	fromDescriptor source = iota
	fromTimeout
	fromIdle
)

// DoOneEvent runs one unit of work. Readiness found by a wait is only
// recorded; the ready handlers run one per call on the following steps.
func (d *Dispatcher) DoOneEvent() error {
	const op = "DoOneEvent"
	if err := d.enter(op); err != nil {
		return err
	}
	defer d.leave()
	return d.step(op)
}

// enter guards against re-entrant steps and applies pending reloads.
func (d *Dispatcher) enter(op string) error {
	if err := d.alive(op); err != nil {
		return err
	}
	if d.inStep {
		return d.reject(api.ErrCodeReentrant, op, "called from inside a callback")
	}
	d.inStep = true
	d.applyReload()
	return nil
}

func (d *Dispatcher) leave() {
	d.inStep = false
	if d.destroyPending {
		// teardown reports its own failures
		_ = d.teardown()
		return
	}
	d.publish()
}

func (d *Dispatcher) step(op string) error {
	d.drained = false
	if desc := d.nextPending(); desc != nil {
		d.runDescriptor(desc)
		return nil
	}

	if sp := d.special; sp != nil && d.specialPending {
		d.runSpecial(sp)
		return nil
	}

	if d.descriptors.Len() == 0 && d.timeouts.Len() == 0 && d.idles.Len() == 0 {
		d.drained = true
		if !d.warnedEmpty {
			d.warnedEmpty = true
			d.logger.Printf("[dispatcher %s] nothing registered, step is a no-op", d.cfg.Name)
		}
		return nil
	}

	watched := d.prepareWait()
	wait := d.computeWait()
	d.lastWait = wait
	d.count("wait.calls", &d.counts.waits)
	n, err := d.source.Wait(d.set, wait)
	if err != nil {
		d.count("wait.errors", &d.counts.waitErrors)
		return d.report(api.WrapError(api.ErrCodeWaitFailed, op, err).WithContext("timeout", wait))
	}
	if n > 0 {
		d.markReady(watched)
		return nil
	}

	if t, ok := d.timeouts.Peek(); ok && t.deadline.Due(d.clock.Now()) {
		d.runTimeout(t)
		return nil
	}

	if top, ok := d.idles.Peek(); ok {
		d.runIdle(top)
	}
	return nil
}

// nextPending pops the oldest handler still registered and pending.
func (d *Dispatcher) nextPending() *descriptor {
	for d.pending.Length() > 0 {
		desc := d.pending.Remove().(*descriptor)
		if desc.pending && d.descriptors.Contains(desc.id) {
			return desc
		}
	}
	return nil
}

// prepareWait runs every query and returns the callbacks it consulted.
func (d *Dispatcher) prepareWait() []*descriptor {
	d.set.Reset()
	watched := d.descriptors.Snapshot()
	for _, desc := range watched {
		if d.descriptors.Contains(desc.id) {
			desc.query(d.set, desc.userData)
		}
	}
	return watched
}

// computeWait returns 0 with idle work registered, the time to the earliest
// deadline with timeouts registered, and a negative (infinite) wait
// otherwise. A query limit and Config.MaxWait can only shorten it.
func (d *Dispatcher) computeWait() time.Duration {
	var wait time.Duration = -1
	if d.idles.Len() > 0 {
		wait = 0
	} else if t, ok := d.timeouts.Peek(); ok {
		wait = t.deadline.Until(d.clock.Now())
	}
	if limit := d.set.MaxTimeout(); limit >= 0 && (wait < 0 || limit < wait) {
		wait = limit
	}
	if ceiling := d.cfg.MaxWait; ceiling > 0 && (wait < 0 || ceiling < wait) {
		wait = ceiling
	}
	return wait
}

func (d *Dispatcher) markReady(watched []*descriptor) {
	for _, desc := range watched {
		if desc.pending || !d.descriptors.Contains(desc.id) {
			continue
		}
		if desc.check(d.set, desc.userData) {
			desc.pending = true
			d.pending.Add(desc)
		}
	}
}

func (d *Dispatcher) runDescriptor(desc *descriptor) {
	desc.retain()
	dispatch, userData := desc.dispatch, desc.userData
	dispatch(userData)
	desc.pending = false
	desc.unref()
	d.count("dispatch.fd", &d.counts.fd)
	d.armSpecial(fromDescriptor)
}

func (d *Dispatcher) runSpecial(sp *idle) {
	sp.retain()
	cb, userData := sp.cb, sp.userData
	keep := cb(userData)
	if !keep && d.special == sp {
		d.specialPending = false
	}
	sp.unref()
	d.count("dispatch.special", &d.counts.special)
}

// runTimeout unregisters t before calling it, so the callback may
// re-register itself for periodic behaviour.
func (d *Dispatcher) runTimeout(t *timeout) {
	t.retain()
	d.timeouts.Remove(t.id)
	t.unref()
	cb, userData := t.cb, t.userData
	cb(userData)
	t.unref()
	d.count("dispatch.timeout", &d.counts.timeout)
	d.armSpecial(fromTimeout)
}

// runIdle calls i; if it is still registered afterwards, false removes it
// and true moves it behind the other callbacks of its priority.
func (d *Dispatcher) runIdle(i *idle) {
	i.retain()
	cb, userData := i.cb, i.userData
	keep := cb(userData)
	if d.idles.Contains(i.id) {
		if keep {
			i.seq = d.nextSeq()
			d.idles.Fix(i.id)
		} else {
			d.idles.Remove(i.id)
			i.unref()
		}
	}
	i.unref()
	d.count("dispatch.idle", &d.counts.idle)
	d.armSpecial(fromIdle)
}

func (d *Dispatcher) armSpecial(from source) {
	if d.special == nil {
		return
	}
	if from == fromIdle && d.cfg.SpecialIdlePolicy == SpecialAfterEvents {
		return
	}
	d.specialPending = true
}
