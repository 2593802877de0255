// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Backend selection for the dispatcher's wait primitive.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-dispatch/api"
)

// Kind names a readiness backend.
type Kind string

const (
	KindSelect Kind = "select"
	KindPoll   Kind = "poll"
)

// NewReactor constructs the default readiness source for this platform.
func NewReactor() (api.ReadinessSource, error) {
	return NewSelectReactor()
}

// New constructs the readiness source named by kind.
func New(kind Kind) (api.ReadinessSource, error) {
	switch kind {
	case KindSelect, "":
		return NewSelectReactor()
	case KindPoll:
		return NewPollReactor()
	default:
		return nil, fmt.Errorf("reactor: unknown backend %q: %w", kind, api.ErrInvalidArgument)
	}
}
