//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package dispatcher

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-dispatch/api"
)

// systemClock reads CLOCK_REALTIME.
type systemClock struct{}

func (systemClock) Now() api.Deadline {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil || ts.Sec < 0 {
		return api.DeadlineFromTime(time.Now())
	}
	return api.Deadline{Seconds: uint64(ts.Sec), Nanoseconds: uint64(ts.Nsec)}
}
