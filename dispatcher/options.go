// File: dispatcher/options.go
// Package dispatcher defines functional options for New.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"log"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
)

// Option customizes dispatcher initialization.
type Option func(*Dispatcher)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.cfg = cfg
	}
}

// WithName sets the name used in logs, metrics and probes.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		d.cfg.Name = name
	}
}

// WithSpecialIdlePolicy selects which dispatches re-arm the special idle callback.
func WithSpecialIdlePolicy(p SpecialIdlePolicy) Option {
	return func(d *Dispatcher) {
		d.cfg.SpecialIdlePolicy = p
	}
}

// WithReadinessSource overrides the backend derived from Config.Backend.
// The dispatcher takes ownership and closes it on Destroy.
func WithReadinessSource(src api.ReadinessSource) Option {
	return func(d *Dispatcher) {
		d.source = src
	}
}

// WithClock overrides the wall clock.
func WithClock(c api.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithErrorHandler receives every rejected operation instead of the log.
func WithErrorHandler(h api.ErrorHandler) Option {
	return func(d *Dispatcher) {
		d.onError = h
	}
}

// WithLogger redirects diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics attaches a metrics sink updated on every dispatch.
func WithMetrics(m api.MetricsSink) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDebug registers the dispatcher's probes with dbg.
func WithDebug(dbg api.Debug) Option {
	return func(d *Dispatcher) {
		d.debug = dbg
	}
}

// WithConfigStore loads the configuration from cs and applies later
// changes at the next step boundary.
func WithConfigStore(cs *control.ConfigStore) Option {
	return func(d *Dispatcher) {
		d.store = cs
	}
}
