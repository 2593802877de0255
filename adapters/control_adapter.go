// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control, api.MetricsSink and api.Debug
// using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
)

type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var (
	_ api.Control     = (*ControlAdapter)(nil)
	_ api.MetricsSink = (*ControlAdapter)(nil)
	_ api.Debug       = (*ControlAdapter)(nil)
)

func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// Store exposes the config store, e.g. for dispatcher.WithConfigStore.
func (c *ControlAdapter) Store() *control.ConfigStore { return c.config }

// Metrics exposes the metrics registry.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

// LoadEnvFile merges dotenv files into the config store.
func (c *ControlAdapter) LoadEnvFile(paths ...string) error {
	return c.config.LoadEnvFile(paths...)
}

// Stats merges metrics with probe output; probes are prefixed with "debug.".
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) Add(key string, delta uint64) {
	c.metrics.Add(key, delta)
}

func (c *ControlAdapter) Set(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *ControlAdapter) RegisterProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *ControlAdapter) UnregisterProbe(name string) {
	c.debug.UnregisterProbe(name)
}

func (c *ControlAdapter) DumpState() map[string]any {
	return c.debug.DumpState()
}
