// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update, env-file loading
// and reload propagation.

package control

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns the raw value stored under key.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetString returns key as a string, or def when unset.
func (cs *ConfigStore) GetString(key, def string) string {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool returns key as a bool. Strings are parsed with strconv.ParseBool;
// unparsable values yield def.
func (cs *ConfigStore) GetBool(key string, def bool) bool {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

// GetInt returns key as an int, or def when unset or unparsable.
func (cs *ConfigStore) GetInt(key string, def int) int {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return def
}

// GetDuration returns key as a duration. Strings use time.ParseDuration,
// integers are taken as milliseconds.
func (cs *ConfigStore) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case int:
		return time.Duration(d) * time.Millisecond
	case int64:
		return time.Duration(d) * time.Millisecond
	case string:
		if parsed, err := time.ParseDuration(strings.TrimSpace(d)); err == nil {
			return parsed
		}
	}
	return def
}

// SetConfig merges new values and dispatches reload.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()
	dispatchReload(listeners)
}

// LoadEnvFile reads dotenv files and merges their entries. Keys are
// normalized by EnvKey, so DISPATCH_MAX_WAIT becomes dispatch.max_wait.
// The process environment is left untouched.
func (cs *ConfigStore) LoadEnvFile(paths ...string) error {
	env, err := godotenv.Read(paths...)
	if err != nil {
		return fmt.Errorf("control: load env: %w", err)
	}
	cfg := make(map[string]any, len(env))
	for k, v := range env {
		cfg[EnvKey(k)] = v
	}
	cs.SetConfig(cfg)
	return nil
}

// EnvKey lower-cases name and turns its first underscore into a dot.
func EnvKey(name string) string {
	return strings.Replace(strings.ToLower(name), "_", ".", 1)
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes listeners synchronously on the caller's goroutine.
func dispatchReload(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
