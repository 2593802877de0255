// File: api/dispatcher.go
// Author: momentics <momentics@gmail.com>
//
// Public surface shared by every dispatcher backend.

package api

// EventDispatcher multiplexes descriptor readiness, timeouts and idle work
// onto a single thread. Implementations are not safe for concurrent use,
// except EndMainLoop.
type EventDispatcher interface {
	AddFileDescriptorHandler(fd int, cb FDCallback, userData any) (FDHandle, error)
	RemoveFileDescriptorHandler(h FDHandle) error

	// AddTimeoutCallback registers cb at an absolute wall-clock deadline.
	AddTimeoutCallback(seconds, nanoseconds uint64, cb TimeoutCallback, userData any) (TimeoutHandle, error)
	// AddTimeoutCallbackRelative registers cb at now + seconds + nanoseconds.
	AddTimeoutCallbackRelative(seconds, nanoseconds uint64, cb TimeoutCallback, userData any) (TimeoutHandle, error)
	RemoveTimeoutCallback(h TimeoutHandle) error

	AddIdleCallback(cb IdleCallback, userData any, priority Priority) (IdleHandle, error)
	SetSpecialIdleCallback(cb IdleCallback, userData any, priority Priority) (IdleHandle, error)
	RemoveIdleCallback(h IdleHandle) error

	DoOneEvent() error
	MainLoop() error
	EndMainLoop() error
	Destroy() error
}
