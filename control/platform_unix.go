//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// control/platform_unix.go
// Author: momentics <momentics@gmail.com>
//
// Unix platform probes: CPU count and descriptor limits.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes sets platform debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS
	})
	dp.RegisterProbe("platform.nofile", func() any {
		var lim unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
			return err.Error()
		}
		return map[string]uint64{"soft": uint64(lim.Cur), "hard": uint64(lim.Max)}
	})
}
