//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"errors"

	"github.com/momentics/hioload-dispatch/api"
)

// NewSelectReactor returns an error for unsupported platforms.
func NewSelectReactor() (api.ReadinessSource, error) {
	return nil, errors.Join(errors.New("reactor: this platform is not supported"), api.ErrNotSupported)
}

// NewPollReactor returns an error for unsupported platforms.
func NewPollReactor() (api.ReadinessSource, error) {
	return nil, errors.Join(errors.New("reactor: this platform is not supported"), api.ErrNotSupported)
}
