// File: dispatcher/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
	"github.com/momentics/hioload-dispatch/reactor"
)

// SpecialIdlePolicy decides which dispatches re-arm the special idle callback.
type SpecialIdlePolicy int

const (
	// SpecialAfterAny re-arms after descriptor, timeout and ordinary idle dispatch.
	SpecialAfterAny SpecialIdlePolicy = iota
	// SpecialAfterEvents re-arms after descriptor and timeout dispatch only.
	SpecialAfterEvents
)

func (p SpecialIdlePolicy) String() string {
	switch p {
	case SpecialAfterAny:
		return "after-any"
	case SpecialAfterEvents:
		return "after-events"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseSpecialIdlePolicy accepts the names produced by String.
func ParseSpecialIdlePolicy(s string) (SpecialIdlePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "after-any", "any", "":
		return SpecialAfterAny, nil
	case "after-events", "events":
		return SpecialAfterEvents, nil
	}
	return 0, fmt.Errorf("special idle policy %q: %w", s, api.ErrInvalidArgument)
}

// Config keys read by ConfigFromStore.
const (
	KeyName            = "dispatch.name"
	KeyBackend         = "dispatch.backend"
	KeySpecialPolicy   = "dispatch.special_policy"
	KeyStopOnWaitError = "dispatch.stop_on_wait_error"
	KeyMaxWait         = "dispatch.max_wait"
)

// Config holds dispatcher tunables. Name and Backend are fixed at
// construction; the rest may change on reload.
type Config struct {
	Name              string            // Prefix for logs, metrics and probes; generated when empty
	Backend           reactor.Kind      // Readiness backend used when no source is supplied
	SpecialIdlePolicy SpecialIdlePolicy // Which dispatches re-arm the special idle callback
	StopOnWaitError   bool              // MainLoop returns on the first wait failure
	MaxWait           time.Duration     // Upper bound on a single wait; 0 leaves waits uncapped
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Backend:           reactor.KindSelect,
		SpecialIdlePolicy: SpecialAfterAny,
	}
}

// ConfigFromStore overlays the dispatch.* keys of cs onto base. Unparsable
// values keep the base setting.
func ConfigFromStore(cs *control.ConfigStore, base Config) Config {
	cfg := base
	cfg.Name = cs.GetString(KeyName, base.Name)
	cfg.Backend = reactor.Kind(cs.GetString(KeyBackend, string(base.Backend)))
	if s := cs.GetString(KeySpecialPolicy, ""); s != "" {
		if p, err := ParseSpecialIdlePolicy(s); err == nil {
			cfg.SpecialIdlePolicy = p
		}
	}
	cfg.StopOnWaitError = cs.GetBool(KeyStopOnWaitError, base.StopOnWaitError)
	cfg.MaxWait = cs.GetDuration(KeyMaxWait, base.MaxWait)
	if cfg.MaxWait < 0 {
		cfg.MaxWait = 0
	}
	return cfg
}
