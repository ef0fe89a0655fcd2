package proc

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/windows"

	"github.com/go-pstack/pstack/pkg/handle"
	"github.com/go-pstack/pstack/pkg/symbols"
)

// osProcessDetails holds Windows specific information.
type osProcessDetails struct {
	sym *symbols.DbgHelp
}

func closeHandleDeleter(h handle.Handle) error {
	return syscall.CloseHandle(syscall.Handle(h))
}

func enableDebugPrivilege() error {
	var token sys.Token
	err := sys.OpenProcessToken(sys.CurrentProcess(), sys.TOKEN_ADJUST_PRIVILEGES|sys.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("could not open process token: %v", err)
	}
	defer token.Close()

	var luid sys.LUID
	err = sys.LookupPrivilegeValue(nil, sys.StringToUTF16Ptr("SeDebugPrivilege"), &luid)
	if err != nil {
		return fmt.Errorf("could not look up SeDebugPrivilege: %v", err)
	}

	privs := sys.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]sys.LUIDAndAttributes{
			{Luid: luid, Attributes: sys.SE_PRIVILEGE_ENABLED},
		},
	}
	err = sys.AdjustTokenPrivileges(token, false, &privs, 0, nil, nil)
	if err != nil {
		return fmt.Errorf("could not adjust token privileges: %v", err)
	}
	return nil
}

// attach starts debugging the process with the given pid. The create
// process event is not consumed here: the first WaitForEvent call
// delivers it.
func attach(p *Process, killOnExit bool) error {
	if err := _DebugActiveProcess(uint32(p.pid)); err != nil {
		return fmt.Errorf("could not attach to process %d: %v", p.pid, err)
	}
	koe := uint32(0)
	if killOnExit {
		koe = 1
	}
	if err := _DebugSetProcessKillOnExit(koe); err != nil {
		p.log.Warnf("DebugSetProcessKillOnExit failed: %v", err)
	}
	exepath, err := findExePath(p.pid)
	if err != nil {
		_DebugActiveProcessStop(uint32(p.pid))
		return err
	}
	p.execPath = exepath
	return nil
}

func detach(p *Process, kill bool) error {
	if p.os.sym != nil {
		p.os.sym.Close()
		p.os.sym = nil
	}
	if kill && !p.exited && p.hProcess.Good() {
		// The debuggee dies with the debug port when kill on exit is
		// active, but an explicit kill must not depend on that.
		_ = syscall.TerminateProcess(syscall.Handle(p.hProcess.Get()), 1)
	}
	err := _DebugActiveProcessStop(uint32(p.pid))
	p.detached = true
	p.modules.closeAll()
	return err
}

// findExePath returns the executable path of process pid.
func findExePath(pid int) (string, error) {
	h, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return "", err
	}
	defer syscall.CloseHandle(h)

	n := uint32(128)
	for {
		buf := make([]uint16, int(n))
		err = _QueryFullProcessImageName(h, 0, &buf[0], &n)
		switch err {
		case syscall.ERROR_INSUFFICIENT_BUFFER:
			n *= 2
			if n > 10000 {
				return "", err
			}
		case nil:
			return syscall.UTF16ToString(buf[:n]), nil
		default:
			return "", err
		}
	}
}

// WaitForEvent blocks for up to timeoutMs milliseconds for the next
// debug event, dispatches it to the registered listeners while every
// debuggee thread is frozen, then resumes the debuggee. Pass
// WaitInfinite to block forever.
//
// The event is applied to the attached process it names, which is not
// necessarily the receiver when several processes were attached from
// the same thread.
//
// A timeout is reported as WaitTimeout with a nil event and nil error;
// nothing is continued in that case because nothing was stopped.
func (p *Process) WaitForEvent(timeoutMs uint32) (WaitOutcome, *Event, error) {
	if ok, err := p.Valid(); !ok {
		return EventUnhandled, nil, err
	}

	var de _DEBUG_EVENT
	if err := _WaitForDebugEvent(&de, timeoutMs); err != nil {
		if err == _ERROR_SEM_TIMEOUT || err == syscall.Errno(sys.WAIT_TIMEOUT) {
			return WaitTimeout, nil, nil
		}
		return EventUnhandled, nil, fmt.Errorf("WaitForDebugEvent failed: %v", err)
	}

	// WaitForDebugEvent returns events for every debuggee attached
	// from this thread, not only the receiver. Apply the event to the
	// process it names, never to the receiver's tables.
	target, ok := p.routeTarget(int(de.ProcessId))
	if !ok {
		if err := _ContinueDebugEvent(de.ProcessId, de.ThreadId, _DBG_CONTINUE); err != nil {
			p.log.Warnf("ContinueDebugEvent for unknown process %d failed: %v", de.ProcessId, err)
		}
		return EventUnhandled, nil, fmt.Errorf("debug event for unknown process %d", de.ProcessId)
	}

	ev, continueStatus, exited := target.decodeEvent(&de)

	outcome := EventUnhandled
	var dispatchErr error
	if ev != nil {
		target.log.Debugf("event pid=%d tid=%d kind=%q", ev.Pid, ev.Tid, ev.Payload.Kind())
		handled, err := target.dispatch(ev)
		if handled {
			outcome = EventHandled
		}
		dispatchErr = err
	}

	// The debuggee resumes even when a listener failed; a stuck
	// debuggee is worse than a lost event.
	if err := _ContinueDebugEvent(de.ProcessId, de.ThreadId, continueStatus); err != nil {
		if dispatchErr == nil {
			dispatchErr = fmt.Errorf("ContinueDebugEvent failed: %v", err)
		}
	}

	if exited {
		target.postExit()
	}
	return outcome, ev, dispatchErr
}

// decodeEvent translates the raw debug event into the model, mutating
// the process's thread and module tables as a side effect. It returns
// the normalized event (nil when the raw event does not map to one),
// the continuation status and whether the debuggee exited.
func (p *Process) decodeEvent(de *_DEBUG_EVENT) (*Event, uint32, bool) {
	tid := int(de.ThreadId)
	ev := &Event{Pid: int(de.ProcessId), Tid: tid}
	continueStatus := uint32(_DBG_CONTINUE)

	unionPtr := unsafe.Pointer(&de.U[0])
	switch de.DebugEventCode {
	case _CREATE_PROCESS_DEBUG_EVENT:
		info := (*_CREATE_PROCESS_DEBUG_INFO)(unionPtr)
		p.hProcess.Reset(handle.Handle(info.Process))
		p.entryPoint = uint64(info.StartAddress)
		p.addThread(tid, handle.Handle(info.Thread))

		file := newFileHandle(info.File)
		base := uint64(info.BaseOfImage)
		p.modules.insert(newModule(base, file))

		sym, err := symbols.NewDbgHelp(sys.Handle(info.Process))
		if err != nil {
			// Stacks degrade to the static resolver without the
			// engine; attachment itself still works.
			p.log.Warnf("symbol engine unavailable: %v", err)
		} else {
			p.os.sym = sym
		}
		ev.Payload = &CreateProcessPayload{
			File:       file,
			Base:       base,
			EntryPoint: p.entryPoint,
		}

	case _CREATE_THREAD_DEBUG_EVENT:
		info := (*_CREATE_THREAD_DEBUG_INFO)(unionPtr)
		p.addThread(tid, handle.Handle(info.Thread))
		ev.Payload = &CreateThreadPayload{StartAddress: uint64(info.StartAddress)}

	case _EXIT_THREAD_DEBUG_EVENT:
		info := (*_EXIT_THREAD_DEBUG_INFO)(unionPtr)
		p.removeThread(tid)
		ev.Payload = &ExitThreadPayload{ExitCode: info.ExitCode}

	case _EXIT_PROCESS_DEBUG_EVENT:
		info := (*_EXIT_PROCESS_DEBUG_INFO)(unionPtr)
		ev.Payload = &ExitProcessPayload{ExitCode: info.ExitCode}
		return ev, continueStatus, true

	case _LOAD_DLL_DEBUG_EVENT:
		info := (*_LOAD_DLL_DEBUG_INFO)(unionPtr)
		file := newFileHandle(info.File)
		base := uint64(info.BaseOfDll)
		p.modules.insert(newModule(base, file))
		ev.Payload = &LoadDLLPayload{File: file, Base: base}

	case _UNLOAD_DLL_DEBUG_EVENT:
		info := (*_UNLOAD_DLL_DEBUG_INFO)(unionPtr)
		base := uint64(info.BaseOfDll)
		if m := p.modules.remove(base); m != nil {
			m.close()
		}
		ev.Payload = &UnloadDLLPayload{Base: base}

	case _OUTPUT_DEBUG_STRING_EVENT:
		info := (*_OUTPUT_DEBUG_STRING_INFO)(unionPtr)
		msg, err := p.readDebugString(info)
		if err != nil {
			p.log.Warnf("could not read debug string: %v", err)
		}
		ev.Payload = &OutputDebugStringPayload{Message: msg}

	case _EXCEPTION_DEBUG_EVENT:
		info := (*_EXCEPTION_DEBUG_INFO)(unionPtr)
		code := info.ExceptionRecord.ExceptionCode
		switch code {
		case _EXCEPTION_BREAKPOINT, _MS_VC_EXCEPTION:
			// The attach breakpoint and the VisualC thread naming
			// exception are swallowed; passing them on would crash the
			// debuggee.
			continueStatus = _DBG_CONTINUE
		default:
			continueStatus = _DBG_EXCEPTION_NOT_HANDLED
		}
		ev.Payload = &ExceptionPayload{
			Code:        code,
			FirstChance: info.FirstChance != 0,
			Address:     uint64(info.ExceptionRecord.ExceptionAddress),
		}

	case _RIP_EVENT:
		info := (*_RIP_INFO)(unionPtr)
		ev.Payload = &RIPErrorPayload{Error: info.Error, Type: info.Type}

	default:
		p.log.Warnf("unknown debug event code: %d", de.DebugEventCode)
		return nil, continueStatus, false
	}

	return ev, continueStatus, false
}

// newFileHandle wraps a file handle delivered by a debug event. Those
// handles are owned by the debugger and must eventually be closed.
func newFileHandle(h syscall.Handle) *handle.Shared {
	if h == 0 || h == syscall.InvalidHandle {
		return nil
	}
	return handle.NewShared(handle.Handle(h), closeHandleDeleter)
}

func (p *Process) readDebugString(info *_OUTPUT_DEBUG_STRING_INFO) (string, error) {
	if info.DebugStringData == 0 || info.DebugStringLength == 0 {
		return "", nil
	}
	n := int(info.DebugStringLength)
	if info.Unicode != 0 {
		n *= 2
	}
	buf := make([]byte, n)
	if _, err := p.ReadMemory(buf, uint64(info.DebugStringData)); err != nil {
		return "", err
	}
	var s string
	if info.Unicode != 0 {
		u16 := make([]uint16, len(buf)/2)
		for i := range u16 {
			u16[i] = uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		}
		s = syscall.UTF16ToString(u16)
	} else {
		s = string(buf)
	}
	return strings.TrimRight(s, "\x00\r\n"), nil
}

// modulePath resolves the file system path of the image backing file.
func modulePath(file *handle.Shared) (string, error) {
	if file == nil || !file.Good() {
		return "", fmt.Errorf("no file handle for module")
	}
	n := uint32(syscall.MAX_PATH)
	for {
		buf := make([]uint16, int(n))
		written, err := _GetFinalPathNameByHandle(syscall.Handle(file.Get()), &buf[0], n, 0)
		if err != nil {
			return "", fmt.Errorf("GetFinalPathNameByHandle failed: %v", err)
		}
		if written < n {
			path := syscall.UTF16ToString(buf[:written])
			return strings.TrimPrefix(path, `\\?\`), nil
		}
		n = written + 1
	}
}
