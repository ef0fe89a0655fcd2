//go:build !windows
// +build !windows

package proc

import (
	"github.com/go-pstack/pstack/pkg/handle"
)

// osProcessDetails is empty on hosts that cannot debug Windows
// processes.
type osProcessDetails struct{}

func enableDebugPrivilege() error {
	return ErrUnsupportedOS
}

func attach(p *Process, killOnExit bool) error {
	return ErrUnsupportedOS
}

func detach(p *Process, kill bool) error {
	return ErrUnsupportedOS
}

func modulePath(file *handle.Shared) (string, error) {
	return "", ErrUnsupportedOS
}

// WaitForEvent is not available on this host.
func (p *Process) WaitForEvent(timeoutMs uint32) (WaitOutcome, *Event, error) {
	return EventUnhandled, nil, ErrUnsupportedOS
}

// ReadMemory is not available on this host.
func (p *Process) ReadMemory(buf []byte, addr uint64) (int, error) {
	return 0, ErrUnsupportedOS
}

func (p *Process) walkStack(t *Thread, opts *StackOptions) ([]Stackframe, error) {
	return nil, ErrUnsupportedOS
}
