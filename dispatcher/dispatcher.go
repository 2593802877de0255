// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher construction, teardown, diagnostics and reload handling.

package dispatcher

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
	"github.com/momentics/hioload-dispatch/internal/registry"
	"github.com/momentics/hioload-dispatch/reactor"
)

// Dispatcher is the generic reactor. It is not safe for concurrent use;
// only EndMainLoop may be called from another goroutine.
type Dispatcher struct {
	cfg     Config
	source  api.ReadinessSource
	clock   api.Clock
	onError api.ErrorHandler
	logger  *log.Logger
	metrics api.MetricsSink
	debug   api.Debug
	store   *control.ConfigStore

	nextID uint64
	seq    uint64
	live   int

	descriptors    *registry.Set[*descriptor]
	timeouts       *registry.Heap[*timeout]
	idles          *registry.Heap[*idle]
	pending        *queue.Queue // *descriptor, in readiness order
	special        *idle
	specialPending bool
	set            *api.DescriptorSet
	lastWait       time.Duration

	cont     atomic.Bool
	reloaded atomic.Bool

	inStep         bool
	destroyPending bool
	destroyed      bool
	warnedEmpty    bool
	drained        bool // last step found nothing registered

	counts counters

	pubMu     sync.Mutex
	published Stats
}

type counters struct {
	fd, timeout, idle, special uint64
	waits, waitErrors          uint64
}

// Stats is a point-in-time view of a dispatcher.
type Stats struct {
	Name           string
	LiveObjects    int // registration objects not yet released
	Descriptors    int
	Timeouts       int
	Idles          int
	Pending        int
	SpecialSet     bool
	SpecialPending bool
	LastWait       time.Duration // timeout of the latest wait; negative when infinite

	FDDispatches      uint64
	TimeoutDispatches uint64
	IdleDispatches    uint64
	SpecialDispatches uint64
	Waits             uint64
	WaitErrors        uint64
}

var _ api.EventDispatcher = (*Dispatcher)(nil)

// New creates a dispatcher. Without WithReadinessSource the backend named
// by Config.Backend is opened.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		cfg:         DefaultConfig(),
		logger:      log.Default(),
		descriptors: registry.NewSet[*descriptor](),
		timeouts:    registry.NewHeap(earlierDeadline),
		idles:       registry.NewHeap(higherPriority),
		pending:     queue.New(),
		set:         api.NewDescriptorSet(),
		lastWait:    -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.store != nil {
		d.cfg = ConfigFromStore(d.store, d.cfg)
		d.store.OnReload(func() { d.reloaded.Store(true) })
	}
	if d.cfg.Name == "" {
		d.cfg.Name = "dispatcher-" + uuid.NewString()[:8]
	}
	if d.clock == nil {
		d.clock = systemClock{}
	}
	if d.source == nil {
		src, err := reactor.New(d.cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: %w", err)
		}
		d.source = src
	}
	d.cont.Store(true)
	if d.debug != nil {
		d.debug.RegisterProbe(d.cfg.Name+".registry", func() any {
			s := d.snapshot()
			return map[string]any{
				"fd":      s.Descriptors,
				"timeout": s.Timeouts,
				"idle":    s.Idles,
				"special": s.SpecialSet,
				"live":    s.LiveObjects,
			}
		})
		d.debug.RegisterProbe(d.cfg.Name+".pending", func() any {
			s := d.snapshot()
			return map[string]any{"fd": s.Pending, "special": s.SpecialPending}
		})
	}
	d.publish()
	return d, nil
}

// Name returns the dispatcher's name.
func (d *Dispatcher) Name() string { return d.cfg.Name }

// Config returns the active configuration.
func (d *Dispatcher) Config() Config { return d.cfg }

// Stats returns the current state. Call it from the dispatching goroutine.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Name:              d.cfg.Name,
		LiveObjects:       d.live,
		Descriptors:       d.descriptors.Len(),
		Timeouts:          d.timeouts.Len(),
		Idles:             d.idles.Len(),
		Pending:           d.pending.Length(),
		SpecialSet:        d.special != nil,
		SpecialPending:    d.special != nil && d.specialPending,
		LastWait:          d.lastWait,
		FDDispatches:      d.counts.fd,
		TimeoutDispatches: d.counts.timeout,
		IdleDispatches:    d.counts.idle,
		SpecialDispatches: d.counts.special,
		Waits:             d.counts.waits,
		WaitErrors:        d.counts.waitErrors,
	}
}

// publish copies Stats for readers on other goroutines (debug probes) and
// refreshes the registry gauges.
func (d *Dispatcher) publish() {
	s := d.Stats()
	d.pubMu.Lock()
	d.published = s
	d.pubMu.Unlock()
	if d.metrics != nil {
		d.metrics.Set("registry.fd", s.Descriptors)
		d.metrics.Set("registry.timeout", s.Timeouts)
		d.metrics.Set("registry.idle", s.Idles)
		d.metrics.Set("registry.live", s.LiveObjects)
	}
}

func (d *Dispatcher) snapshot() Stats {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()
	return d.published
}

func (d *Dispatcher) count(key string, c *uint64) {
	*c++
	if d.metrics != nil {
		d.metrics.Add(key, 1)
	}
}

// report hands a rejected operation to the error handler and returns it.
func (d *Dispatcher) report(e *api.Error) error {
	if d.onError != nil {
		d.onError(e)
	} else {
		d.logger.Printf("[dispatcher %s] %v", d.cfg.Name, e)
	}
	return e
}

func (d *Dispatcher) reject(code api.ErrorCode, op, msg string) error {
	return d.report(api.NewError(code, op, msg))
}

// accepting fails registrations on a dispatcher that is gone or going.
func (d *Dispatcher) accepting(op string) error {
	if d.destroyed || d.destroyPending {
		return d.reject(api.ErrCodeDestroyed, op, "")
	}
	return nil
}

func (d *Dispatcher) alive(op string) error {
	if d.destroyed {
		return d.reject(api.ErrCodeDestroyed, op, "")
	}
	return nil
}

// applyReload picks up config store changes. Name and Backend stay fixed.
func (d *Dispatcher) applyReload() {
	if d.store == nil || !d.reloaded.Swap(false) {
		return
	}
	next := ConfigFromStore(d.store, d.cfg)
	next.Name, next.Backend = d.cfg.Name, d.cfg.Backend
	if next != d.cfg {
		d.logger.Printf("[dispatcher %s] config reloaded: policy=%s stop_on_wait_error=%t max_wait=%s",
			d.cfg.Name, next.SpecialIdlePolicy, next.StopOnWaitError, next.MaxWait)
	}
	d.cfg = next
}

// Destroy releases every registration and closes the readiness source.
// Called from inside a callback it takes effect when the step returns.
func (d *Dispatcher) Destroy() error {
	if err := d.alive("Destroy"); err != nil {
		return err
	}
	if d.inStep {
		d.destroyPending = true
		return nil
	}
	return d.teardown()
}

func (d *Dispatcher) teardown() error {
	d.destroyed = true
	d.destroyPending = false
	d.cont.Store(false)
	for d.pending.Length() > 0 {
		d.pending.Remove()
	}
	for _, desc := range d.descriptors.Drain() {
		desc.unref()
	}
	for _, t := range d.timeouts.Drain() {
		t.unref()
	}
	for _, i := range d.idles.Drain() {
		i.unref()
	}
	if sp := d.special; sp != nil {
		d.special, d.specialPending = nil, false
		sp.unref()
	}
	if d.debug != nil {
		d.debug.UnregisterProbe(d.cfg.Name + ".registry")
		d.debug.UnregisterProbe(d.cfg.Name + ".pending")
	}
	d.publish()
	if d.live != 0 {
		d.logger.Printf("[dispatcher %s] %d registration objects still referenced after destroy", d.cfg.Name, d.live)
	}
	if err := d.source.Close(); err != nil && !errors.Is(err, api.ErrDestroyed) {
		return d.report(api.WrapError(api.ErrCodeDestroyed, "Destroy", fmt.Errorf("close readiness source: %w", err)))
	}
	return nil
}
