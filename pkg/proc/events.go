package proc

import (
	"fmt"

	"github.com/go-pstack/pstack/pkg/handle"
)

// WaitOutcome is the tri-state result of WaitForEvent. A timeout is an
// ordinary outcome, distinguishable from a received event, not an
// error.
type WaitOutcome int

const (
	// EventHandled means an event arrived and at least one listener
	// handled it.
	EventHandled WaitOutcome = iota
	// EventUnhandled means an event arrived and no listener handled it.
	EventUnhandled
	// WaitTimeout means no event arrived before the timeout elapsed.
	// The debuggee is not continued in this case: there is no stopped
	// thread to resume.
	WaitTimeout
)

func (w WaitOutcome) String() string {
	switch w {
	case EventHandled:
		return "handled"
	case EventUnhandled:
		return "unhandled"
	case WaitTimeout:
		return "timeout"
	}
	return fmt.Sprintf("WaitOutcome(%d)", int(w))
}

// ExceptionBreakpoint is the exception code reported for breakpoint
// exceptions, including the initial break raised when attaching.
const ExceptionBreakpoint = 0x80000003

// WaitInfinite makes WaitForEvent block until an event arrives.
const WaitInfinite = ^uint32(0)

// Event is one normalized debug event. Payload holds one of the nine
// event kinds as a typed value.
type Event struct {
	// Pid is the process the event originated from.
	Pid int
	// Tid is the thread the event originated from.
	Tid int
	// Payload describes the event kind.
	Payload EventPayload
}

// EventPayload is implemented by the nine debug event payloads. The
// set is closed: listeners switch over the concrete types.
type EventPayload interface {
	// Kind returns a short human readable event kind name.
	Kind() string
}

// CreateProcessPayload reports the creation of (or attachment to) the
// debugged process. File is a shared handle to the main image file; it
// stays open for the lifetime of the module record because both the
// symbol engine and the static image parser may need it beyond the
// event's scope.
type CreateProcessPayload struct {
	File       *handle.Shared
	Base       uint64
	EntryPoint uint64
}

func (*CreateProcessPayload) Kind() string { return "create process" }

// CreateThreadPayload reports a new thread in the debuggee.
type CreateThreadPayload struct {
	StartAddress uint64
}

func (*CreateThreadPayload) Kind() string { return "create thread" }

// ExceptionPayload reports an exception raised in the debuggee.
type ExceptionPayload struct {
	Code        uint32
	FirstChance bool
	Address     uint64
}

func (*ExceptionPayload) Kind() string { return "exception" }

// ExitProcessPayload reports that the debuggee exited.
type ExitProcessPayload struct {
	ExitCode uint32
}

func (*ExitProcessPayload) Kind() string { return "exit process" }

// ExitThreadPayload reports that a debuggee thread exited.
type ExitThreadPayload struct {
	ExitCode uint32
}

func (*ExitThreadPayload) Kind() string { return "exit thread" }

// LoadDLLPayload reports a library image loaded into the debuggee.
// File is a shared handle to the image file, see CreateProcessPayload.
type LoadDLLPayload struct {
	File *handle.Shared
	Base uint64
}

func (*LoadDLLPayload) Kind() string { return "load dll" }

// UnloadDLLPayload reports a library image unloaded from the debuggee.
type UnloadDLLPayload struct {
	Base uint64
}

func (*UnloadDLLPayload) Kind() string { return "unload dll" }

// OutputDebugStringPayload carries a debug string emitted by the
// debuggee.
type OutputDebugStringPayload struct {
	Message string
}

func (*OutputDebugStringPayload) Kind() string { return "output debug string" }

// RIPErrorPayload reports a debugger system error in the debuggee.
type RIPErrorPayload struct {
	Error uint32
	Type  uint32
}

func (*RIPErrorPayload) Kind() string { return "rip error" }

// EventListener receives every debug event of a process, in
// registration order. The returned bool reports whether the listener
// handled the event; the aggregate dispatch result is the logical OR
// across all listeners. A returned error (or a panic) aborts dispatch
// of the current event and surfaces as a ListenerError.
type EventListener interface {
	HandleEvent(p *Process, ev *Event) (bool, error)
}

// RegisterListener appends l to the process's listener list.
// Listeners must not be registered while an event is being dispatched.
func (p *Process) RegisterListener(l EventListener) {
	p.listeners = append(p.listeners, l)
}

func (p *Process) dispatch(ev *Event) (bool, error) {
	handled := false
	for _, l := range p.listeners {
		h, err := safeHandle(l, p, ev)
		if err != nil {
			return handled, &ListenerError{Err: err}
		}
		handled = handled || h
	}
	return handled, nil
}

// safeHandle repackages a listener panic into an error so that a
// misbehaving listener cannot corrupt the event loop's own state.
func safeHandle(l EventListener, p *Process, ev *Event) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", ev.Payload.Kind(), r)
		}
	}()
	return l.HandleEvent(p, ev)
}
