// Package host
// Author: momentics <momentics@gmail.com>
//
// EventDispatcher served by an external host main loop. Registrations arm
// the host's own input, timer and idle mechanisms; the dispatcher only
// keeps the bookkeeping needed for removal and the special idle callback.

package host

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/dispatcher"
)

// Option customizes a host-backed dispatcher.
type Option func(*Dispatcher)

// WithName sets the name used in diagnostics.
func WithName(name string) Option {
	return func(d *Dispatcher) { d.name = name }
}

// WithClock overrides the wall clock used for absolute deadlines.
func WithClock(c api.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithErrorHandler receives every rejected operation instead of the log.
func WithErrorHandler(h api.ErrorHandler) Option {
	return func(d *Dispatcher) { d.onError = h }
}

// WithLogger redirects diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithSpecialIdlePolicy selects which dispatches re-arm the special idle callback.
func WithSpecialIdlePolicy(p dispatcher.SpecialIdlePolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

type special struct {
	id       uint64
	priority api.Priority
	cb       api.IdleCallback
	userData any
	hostID   api.HostID
	armed    bool
}

// Dispatcher implements api.EventDispatcher on an api.HostLoop.
type Dispatcher struct {
	loop    api.HostLoop
	name    string
	clock   api.Clock
	onError api.ErrorHandler
	logger  *log.Logger
	policy  dispatcher.SpecialIdlePolicy

	nextID   uint64
	inputs   map[uint64]api.HostID
	timers   map[uint64]api.HostID
	idles    map[uint64]api.HostID
	special  *special
	dispatch uint64

	cont           atomic.Bool
	inStep         bool
	destroyPending bool
	destroyed      bool
	warnedEmpty    bool
	drained        bool
}

var _ api.EventDispatcher = (*Dispatcher)(nil)

type wallClock struct{}

func (wallClock) Now() api.Deadline { return api.DeadlineFromTime(time.Now()) }

// New wraps loop. All callbacks run inside loop.Iterate.
func New(loop api.HostLoop, opts ...Option) (*Dispatcher, error) {
	if loop == nil {
		return nil, fmt.Errorf("host: nil loop: %w", api.ErrInvalidArgument)
	}
	d := &Dispatcher{
		loop:   loop,
		clock:  wallClock{},
		logger: log.Default(),
		inputs: make(map[uint64]api.HostID),
		timers: make(map[uint64]api.HostID),
		idles:  make(map[uint64]api.HostID),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name == "" {
		d.name = "host-" + uuid.NewString()[:8]
	}
	d.cont.Store(true)
	return d, nil
}

// Name returns the dispatcher's name.
func (d *Dispatcher) Name() string { return d.name }

// Registered returns the number of live registrations, special included.
func (d *Dispatcher) Registered() int {
	n := len(d.inputs) + len(d.timers) + len(d.idles)
	if d.special != nil {
		n++
	}
	return n
}

// Dispatches returns how many callbacks other than the special one ran.
func (d *Dispatcher) Dispatches() uint64 { return d.dispatch }

func (d *Dispatcher) report(e *api.Error) error {
	if d.onError != nil {
		d.onError(e)
	} else {
		d.logger.Printf("[host %s] %v", d.name, e)
	}
	return e
}

func (d *Dispatcher) reject(code api.ErrorCode, op, msg string) error {
	return d.report(api.NewError(code, op, msg))
}

func (d *Dispatcher) accepting(op string) error {
	if d.destroyed || d.destroyPending {
		return d.reject(api.ErrCodeDestroyed, op, "")
	}
	return nil
}

func (d *Dispatcher) id() uint64 {
	d.nextID++
	return d.nextID
}

// fired books a dispatch and re-arms the special idle callback.
func (d *Dispatcher) fired(fromIdle bool) {
	d.dispatch++
	sp := d.special
	if sp == nil || sp.armed {
		return
	}
	if fromIdle && d.policy == dispatcher.SpecialAfterEvents {
		return
	}
	d.armSpecial(sp)
}

func (d *Dispatcher) armSpecial(sp *special) {
	hid, err := d.loop.AddIdle(sp.priority, func() bool {
		keep := sp.cb(sp.userData)
		if !keep && d.special == sp {
			sp.armed = false
		}
		return keep && d.special == sp
	})
	if err != nil {
		d.report(api.WrapError(api.ErrCodeResourceExhausted, "SetSpecialIdleCallback", err))
		return
	}
	sp.hostID, sp.armed = hid, true
}

func (d *Dispatcher) disarmSpecial(sp *special) {
	if sp.armed {
		_ = d.loop.RemoveIdle(sp.hostID)
		sp.armed = false
	}
}
