package task

import (
	"fmt"
	"runtime"
)

// Kind classifies the category of failure carried by a [ResultCell].
// Recoverable errors are observed alongside a value, fatal errors are the
// sole occupant of a cell, disconnected errors drive [RetryOnDisconnect],
// and canceled errors are synthesized when a [WeakFulfiller] is abandoned.
type Kind int

const (
	// Failed is a generic, non-distinguished failure.
	Failed Kind = iota
	// Disconnected indicates a peer, remote loop, or transport is gone.
	Disconnected
	// Canceled indicates work was abandoned before it produced a result.
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Failed:
		return "failed"
	case Disconnected:
		return "disconnected"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the error type produced and consumed throughout this package.
// It carries a textual message, the file/line of where it was raised, and
// a discriminated [Kind].
type Error struct {
	Kind  Kind
	File  string
	Line  int
	Msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError returns a new [Error] of the given kind, with the message
// produced by fmt.Sprintf(format, args...). The caller's file and line are
// recorded automatically.
func NewError(kind Kind, format string, args ...any) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{Kind: kind, File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a new [Error] of the given kind that wraps cause. A nil
// cause yields nil, and a cause that is already an *Error is returned
// unchanged, keeping its own kind.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return nil
	}
	if e, ok := cause.(*Error); ok {
		return e
	}
	_, file, line, _ := runtime.Caller(1)
	return &Error{Kind: kind, File: file, Line: line, Msg: cause.Error(), cause: cause}
}

// Disconnectedf returns a new [Error] of kind [Disconnected].
func Disconnectedf(format string, args ...any) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{Kind: Disconnected, File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Canceledf returns a new [Error] of kind [Canceled].
func Canceledf(format string, args ...any) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{Kind: Canceled, File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// IsDisconnected reports whether err is, or wraps, an [Error] of kind
// [Disconnected].
func IsDisconnected(err error) bool {
	var e *Error
	for err != nil {
		if v, ok := err.(*Error); ok {
			e = v
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == Disconnected
}

// IsCanceled reports whether err is, or wraps, an [Error] of kind
// [Canceled].
func IsCanceled(err error) bool {
	var e *Error
	for err != nil {
		if v, ok := err.(*Error); ok {
			e = v
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == Canceled
}

// asPanicError captures a recovered panic value as an error of kind Failed
// (a panic value that is already an *Error keeps its own kind),
// without a stack trace attached (see [Coroutine.Throw] in the teacher for
// why: callers that want a trace should not recover in the first place).
func asPanicError(v any) error {
	if err, ok := v.(error); ok {
		return Wrap(Failed, err)
	}
	return NewError(Failed, "panic: %v", v)
}
