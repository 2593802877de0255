// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error reporting utilities for the dispatcher.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotRegistered     = errors.New("handle not registered")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrWaitFailed        = errors.New("wait primitive failed")
	ErrDestroyed         = errors.New("dispatcher destroyed")
	ErrReentrant         = errors.New("re-entrant dispatch")
	ErrNotSupported      = errors.New("operation not supported")
)

// ErrorCode classifies a rejected operation.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotRegistered
	ErrCodeResourceExhausted
	ErrCodeWaitFailed
	ErrCodeDestroyed
	ErrCodeReentrant
	ErrCodeNotSupported
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeInvalidArgument:   ErrInvalidArgument,
	ErrCodeNotRegistered:     ErrNotRegistered,
	ErrCodeResourceExhausted: ErrResourceExhausted,
	ErrCodeWaitFailed:        ErrWaitFailed,
	ErrCodeDestroyed:         ErrDestroyed,
	ErrCodeReentrant:         ErrReentrant,
	ErrCodeNotSupported:      ErrNotSupported,
}

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid-argument"
	case ErrCodeNotRegistered:
		return "not-registered"
	case ErrCodeResourceExhausted:
		return "resource-exhausted"
	case ErrCodeWaitFailed:
		return "wait-failed"
	case ErrCodeDestroyed:
		return "destroyed"
	case ErrCodeReentrant:
		return "reentrant"
	case ErrCodeNotSupported:
		return "not-supported"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error represents a structured error with code, failing operation and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Context map[string]any
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		if s, ok := codeSentinels[e.Code]; ok {
			msg = s.Error()
		} else {
			msg = e.Code.String()
		}
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel error belonging to the code.
func (e *Error) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok && s == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
	}
}

// WrapError creates a structured error around an underlying cause.
func WrapError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the code of a structured error, or ErrCodeOK for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, s := range codeSentinels {
		if errors.Is(err, s) {
			return code
		}
	}
	return ErrorCode(-1)
}

// ErrorHandler receives every rejected operation before it returns.
type ErrorHandler func(err *Error)
