// Package api
// Author: momentics
//
// Live debug support for running dispatchers.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)

	// UnregisterProbe drops a probe, e.g. when its owner is destroyed.
	UnregisterProbe(name string)
}
