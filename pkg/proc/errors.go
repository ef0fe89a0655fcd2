package proc

import (
	"errors"
	"fmt"
)

// ErrProcessExited indicates that the process being debugged has exited.
type ErrProcessExited struct {
	Pid    int
	Status int
}

func (pe ErrProcessExited) Error() string {
	return fmt.Sprintf("Process %d has exited with status %d", pe.Pid, pe.Status)
}

// ProcessDetachedError indicates that the debugger detached from the
// process.
type ProcessDetachedError struct{}

func (pe ProcessDetachedError) Error() string {
	return "detached from the process"
}

// ErrShortRead is returned when ReadMemory returns fewer bytes than
// requested.
var ErrShortRead = errors.New("short read")

// ErrUnsupportedOS is returned by every operation requiring a live
// debuggee on hosts other than Windows.
var ErrUnsupportedOS = errors.New("debugging is only supported on Windows")

// ErrNoSymbolEngine is returned by stack walks when the symbol engine
// could not be initialized at attach time.
var ErrNoSymbolEngine = errors.New("symbol engine is not initialized")

// ListenerError wraps a failure escaping an event listener. It is
// distinct from an ordinary "unhandled" dispatch result: a listener
// must not fail, and a failure aborts dispatch of the current event.
type ListenerError struct {
	Err error
}

func (e *ListenerError) Error() string {
	return "event listener failed: " + e.Err.Error()
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
