// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

// Clock is a manually driven api.Clock.
type Clock struct {
	mu  sync.Mutex
	now api.Deadline
}

// NewClock starts the clock at start.
func NewClock(start api.Deadline) *Clock {
	return &Clock{now: start.Normalize()}
}

// Now implements api.Clock.
func (c *Clock) Now() api.Deadline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDuration(d)
}

// Set jumps the clock to t.
func (c *Clock) Set(t api.Deadline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.Normalize()
}
