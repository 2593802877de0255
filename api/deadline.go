// File: api/deadline.go
// Author: momentics <momentics@gmail.com>
//
// Absolute wall-clock deadlines in seconds + nanoseconds.

package api

import (
	"math"
	"math/bits"
	"time"
)

const nanosPerSecond = uint64(time.Second)

// Deadline is an absolute wall-clock instant relative to the Unix epoch.
// Arithmetic saturates at MaxDeadline instead of wrapping.
type Deadline struct {
	Seconds     uint64
	Nanoseconds uint64
}

// MaxDeadline is the latest representable instant.
var MaxDeadline = Deadline{Seconds: math.MaxUint64, Nanoseconds: nanosPerSecond - 1}

// DeadlineFromTime converts t; instants before the epoch clamp to zero.
func DeadlineFromTime(t time.Time) Deadline {
	ns := t.UnixNano()
	if ns <= 0 {
		return Deadline{}
	}
	return Deadline{Seconds: uint64(ns) / nanosPerSecond, Nanoseconds: uint64(ns) % nanosPerSecond}
}

// Normalize carries whole seconds out of the nanosecond field.
func (d Deadline) Normalize() Deadline {
	if d.Nanoseconds < nanosPerSecond {
		return d
	}
	secs, carry := bits.Add64(d.Seconds, d.Nanoseconds/nanosPerSecond, 0)
	if carry != 0 {
		return MaxDeadline
	}
	return Deadline{Seconds: secs, Nanoseconds: d.Nanoseconds % nanosPerSecond}
}

// Add returns d shifted by seconds + nanoseconds, normalized.
func (d Deadline) Add(seconds, nanoseconds uint64) Deadline {
	d = d.Normalize()
	extra := Deadline{Seconds: seconds, Nanoseconds: nanoseconds}.Normalize()
	secs, carry := bits.Add64(d.Seconds, extra.Seconds, 0)
	if carry != 0 {
		return MaxDeadline
	}
	// Both nanosecond fields are below one second, so the sum cannot wrap.
	return Deadline{Seconds: secs, Nanoseconds: d.Nanoseconds + extra.Nanoseconds}.Normalize()
}

// AddDuration shifts d by a non-negative duration; negative durations are ignored.
func (d Deadline) AddDuration(delta time.Duration) Deadline {
	if delta <= 0 {
		return d.Normalize()
	}
	return d.Add(0, uint64(delta))
}

// Compare orders by seconds, then nanoseconds.
func (d Deadline) Compare(o Deadline) int {
	d, o = d.Normalize(), o.Normalize()
	switch {
	case d.Seconds < o.Seconds:
		return -1
	case d.Seconds > o.Seconds:
		return 1
	case d.Nanoseconds < o.Nanoseconds:
		return -1
	case d.Nanoseconds > o.Nanoseconds:
		return 1
	}
	return 0
}

// Before reports d < o.
func (d Deadline) Before(o Deadline) bool { return d.Compare(o) < 0 }

// Due reports whether d has been reached at now.
func (d Deadline) Due(now Deadline) bool { return d.Compare(now) <= 0 }

// Until returns the time from now to d, clamped to zero when already past.
// Spans beyond the range of time.Duration saturate.
func (d Deadline) Until(now Deadline) time.Duration {
	if d.Due(now) {
		return 0
	}
	d, now = d.Normalize(), now.Normalize()
	secs := d.Seconds - now.Seconds
	var nanos int64
	if d.Nanoseconds >= now.Nanoseconds {
		nanos = int64(d.Nanoseconds - now.Nanoseconds)
	} else {
		secs--
		nanos = int64(nanosPerSecond + d.Nanoseconds - now.Nanoseconds)
	}
	if secs > uint64(math.MaxInt64/int64(time.Second))-1 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos)
}

// Time converts d back to a time.Time.
func (d Deadline) Time() time.Time {
	d = d.Normalize()
	return time.Unix(int64(d.Seconds), int64(d.Nanoseconds))
}

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() Deadline
}
