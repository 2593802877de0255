// Package dispatcher
// Author: momentics <momentics@gmail.com>
//
// Single-threaded reactor multiplexing descriptor readiness, wall-clock
// timeouts and idle work onto one blocking wait.
//
// A Dispatcher runs exactly one unit of work per DoOneEvent call, in this
// order of precedence:
//   - one descriptor handler left pending by an earlier wait
//   - the special idle callback, while it is pending
//   - a wait on the readiness source; ready handlers become pending
//   - the earliest due timeout
//   - the highest priority idle callback
//
// Callbacks may add or remove registrations, including their own, while
// they run. Nothing but EndMainLoop may be called from another goroutine.
package dispatcher
