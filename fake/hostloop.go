// Package fake
// Author: momentics <momentics@gmail.com>
//
// Deterministic host event loop for exercising the host bridge.

package fake

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

type hostInput struct {
	fd int
	fn func()
}

type hostTimer struct {
	due api.Deadline
	seq uint64
	fn  func()
}

type hostIdle struct {
	priority api.Priority
	seq      uint64
	fn       func() bool
}

// HostLoop is a single-threaded api.HostLoop driven by Iterate. Each
// iteration runs one ready input, else one due timer, else the highest
// priority idle. With only future timers pending it jumps the clock to
// the earliest one.
type HostLoop struct {
	mu       sync.Mutex
	clock    *Clock
	nextID   api.HostID
	seq      uint64
	inputs   map[api.HostID]*hostInput
	timers   map[api.HostID]*hostTimer
	idles    map[api.HostID]*hostIdle
	readable map[int]bool
	iterated int
}

// NewHostLoop creates a host loop on clock.
func NewHostLoop(clock *Clock) *HostLoop {
	return &HostLoop{
		clock:    clock,
		inputs:   make(map[api.HostID]*hostInput),
		timers:   make(map[api.HostID]*hostTimer),
		idles:    make(map[api.HostID]*hostIdle),
		readable: make(map[int]bool),
	}
}

// SetReadable marks fd readable for the input sources watching it.
func (h *HostLoop) SetReadable(fd int, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readable[fd] = ready
}

func (h *HostLoop) id() api.HostID {
	h.nextID++
	return h.nextID
}

func (h *HostLoop) AddInput(fd int, fn func()) (api.HostID, error) {
	if fd < 0 || fn == nil {
		return 0, api.ErrInvalidArgument
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.id()
	h.inputs[id] = &hostInput{fd: fd, fn: fn}
	return id, nil
}

func (h *HostLoop) RemoveInput(id api.HostID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inputs[id]; !ok {
		return api.ErrNotRegistered
	}
	delete(h.inputs, id)
	return nil
}

func (h *HostLoop) AddTimer(delay time.Duration, fn func()) (api.HostID, error) {
	if fn == nil {
		return 0, api.ErrInvalidArgument
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.id()
	h.seq++
	h.timers[id] = &hostTimer{due: h.clock.Now().AddDuration(delay), seq: h.seq, fn: fn}
	return id, nil
}

func (h *HostLoop) RemoveTimer(id api.HostID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.timers[id]; !ok {
		return api.ErrNotRegistered
	}
	delete(h.timers, id)
	return nil
}

func (h *HostLoop) AddIdle(priority api.Priority, fn func() bool) (api.HostID, error) {
	if fn == nil {
		return 0, api.ErrInvalidArgument
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.id()
	h.seq++
	h.idles[id] = &hostIdle{priority: priority, seq: h.seq, fn: fn}
	return id, nil
}

func (h *HostLoop) RemoveIdle(id api.HostID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.idles[id]; !ok {
		return api.ErrNotRegistered
	}
	delete(h.idles, id)
	return nil
}

// Iterations returns how many times Iterate did work.
func (h *HostLoop) Iterations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.iterated
}

// Pending reports the number of registered inputs, timers and idles.
func (h *HostLoop) Pending() (inputs, timers, idles int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.inputs), len(h.timers), len(h.idles)
}

// Iterate runs one unit of host work. Callbacks run without the lock held.
func (h *HostLoop) Iterate() error {
	h.mu.Lock()
	if fn := h.readyInputLocked(); fn != nil {
		h.iterated++
		h.mu.Unlock()
		fn()
		return nil
	}
	now := h.clock.Now()
	if id, t := h.earliestTimerLocked(); t != nil && t.due.Due(now) {
		delete(h.timers, id)
		h.iterated++
		h.mu.Unlock()
		t.fn()
		return nil
	}
	if id, idle := h.topIdleLocked(); idle != nil {
		h.iterated++
		h.mu.Unlock()
		keep := idle.fn()
		h.mu.Lock()
		if cur, ok := h.idles[id]; ok && cur == idle {
			if keep {
				h.seq++
				idle.seq = h.seq
			} else {
				delete(h.idles, id)
			}
		}
		h.mu.Unlock()
		return nil
	}
	if id, t := h.earliestTimerLocked(); t != nil {
		delete(h.timers, id)
		h.iterated++
		h.mu.Unlock()
		h.clock.Set(t.due)
		t.fn()
		return nil
	}
	h.mu.Unlock()
	return nil
}

func (h *HostLoop) readyInputLocked() func() {
	ids := make([]api.HostID, 0, len(h.inputs))
	for id, in := range h.inputs {
		if h.readable[in.fd] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return h.inputs[ids[0]].fn
}

func (h *HostLoop) earliestTimerLocked() (api.HostID, *hostTimer) {
	var bestID api.HostID
	var best *hostTimer
	for id, t := range h.timers {
		if best == nil || t.due.Before(best.due) || (t.due.Compare(best.due) == 0 && t.seq < best.seq) {
			bestID, best = id, t
		}
	}
	return bestID, best
}

func (h *HostLoop) topIdleLocked() (api.HostID, *hostIdle) {
	var bestID api.HostID
	var best *hostIdle
	for id, i := range h.idles {
		if best == nil || i.priority > best.priority || (i.priority == best.priority && i.seq < best.seq) {
			bestID, best = id, i
		}
	}
	return bestID, best
}

var _ api.HostLoop = (*HostLoop)(nil)
var _ api.ReadinessSource = (*Readiness)(nil)
var _ api.DescriptorCapacity = (*Readiness)(nil)
var _ api.Clock = (*Clock)(nil)
