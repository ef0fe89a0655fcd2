package proc

import (
	"fmt"
	"syscall"

	"github.com/go-pstack/pstack/pkg/winutil"
)

// ReadMemory reads len(buf) bytes from the debuggee at addr. A partial
// read returns the bytes obtained along with ErrShortRead.
func (p *Process) ReadMemory(buf []byte, addr uint64) (int, error) {
	if ok, err := p.Valid(); !ok {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	var count uintptr
	err := _ReadProcessMemory(syscall.Handle(p.hProcess.Get()), uintptr(addr), &buf[0], uintptr(len(buf)), &count)
	if err != nil {
		return 0, err
	}
	if count != uintptr(len(buf)) {
		return int(count), ErrShortRead
	}
	return int(count), nil
}

// threadContext captures the full CPU context of the thread, which must
// be stopped.
func (t *Thread) threadContext() (*winutil.CONTEXT, error) {
	context := winutil.NewCONTEXT()
	context.ContextFlags = winutil.ContextAll
	if err := _GetThreadContext(syscall.Handle(t.hThread), context); err != nil {
		return nil, fmt.Errorf("GetThreadContext failed: %v", err)
	}
	return context, nil
}

// Registers returns the register snapshot of the stopped thread.
func (t *Thread) Registers() (*winutil.AMD64Registers, error) {
	if ok, err := t.dbp.Valid(); !ok {
		return nil, err
	}
	context, err := t.threadContext()
	if err != nil {
		return nil, err
	}
	return winutil.NewAMD64Registers(context), nil
}
