//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package dispatcher

import (
	"time"

	"github.com/momentics/hioload-dispatch/api"
)

type systemClock struct{}

func (systemClock) Now() api.Deadline { return api.DeadlineFromTime(time.Now()) }
