package symbols

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/go-pstack/pstack/pkg/logflags"
)

var (
	modDbgHelp = windows.NewLazySystemDLL("dbghelp.dll")

	procSymSetOptions            = modDbgHelp.NewProc("SymSetOptions")
	procSymInitializeW           = modDbgHelp.NewProc("SymInitializeW")
	procSymCleanup               = modDbgHelp.NewProc("SymCleanup")
	procSymFromAddrW             = modDbgHelp.NewProc("SymFromAddrW")
	procSymGetLineFromAddrW64    = modDbgHelp.NewProc("SymGetLineFromAddrW64")
	procSymFunctionTableAccess64 = modDbgHelp.NewProc("SymFunctionTableAccess64")
	procSymGetModuleBase64       = modDbgHelp.NewProc("SymGetModuleBase64")
	procStackWalk64              = modDbgHelp.NewProc("StackWalk64")
)

const (
	_SYMOPT_UNDNAME        = 0x00000002
	_SYMOPT_DEFERRED_LOADS = 0x00000004
	_SYMOPT_LOAD_LINES     = 0x00000010

	maxSymName = 2000
)

// MachineAMD64 is the StackWalk64 machine type for x86-64 debuggees.
const MachineAMD64 = 0x8664

// AddrModeFlat is the only address mode used on 64 bit Windows.
const AddrModeFlat = 3

type symbolInfoW struct {
	SizeOfStruct uint32
	TypeIndex    uint32
	Reserved     [2]uint64
	Index        uint32
	Size         uint32
	ModBase      uint64
	Flags        uint32
	Value        uint64
	Address      uint64
	Register     uint32
	Scope        uint32
	Tag          uint32
	NameLen      uint32
	MaxNameLen   uint32
	Name         [maxSymName + 1]uint16
}

type imagehlpLineW64 struct {
	SizeOfStruct uint32
	Key          uintptr
	LineNumber   uint32
	FileName     *uint16
	Address      uint64
}

// Address64 mirrors the dbghelp ADDRESS64 struct.
type Address64 struct {
	Offset  uint64
	Segment uint16
	Mode    uint32
}

type kdHelp64 struct {
	Thread                         uint64
	ThCallbackStack                uint32
	ThCallbackBStore               uint32
	NextCallback                   uint32
	FramePointer                   uint32
	KiCallUserMode                 uint64
	KeUserCallbackDispatcher       uint64
	SystemRangeStart               uint64
	KiUserExceptionDispatcher      uint64
	StackBase                      uint64
	StackLimit                     uint64
	BuildVersion                   uint32
	RetpolineStubFunctionTableSize uint32
	RetpolineStubFunctionTable     uint64
	RetpolineStubOffset            uint32
	RetpolineStubSize              uint32
	Reserved0                      [2]uint64
}

// StackFrame64 mirrors the dbghelp STACKFRAME64 struct consumed and
// produced by StackWalk64.
type StackFrame64 struct {
	AddrPC         Address64
	AddrReturn     Address64
	AddrFrame      Address64
	AddrStack      Address64
	AddrBStore     Address64
	FuncTableEntry uintptr
	Params         [4]uint64
	Far            int32
	Virtual        int32
	Reserved       [3]uint64
	KdHelp         kdHelp64
}

// DbgHelp wraps the Windows symbol engine for one process handle.
//
// The engine is process global per handle: constructing two resolvers
// for the same handle is undefined behavior, and dbghelp itself is
// documented as single threaded, so calls must be externally
// serialized.
type DbgHelp struct {
	hProcess windows.Handle
	log      logflags.Logger
}

// NewDbgHelp initializes the symbol engine for hProcess, loading
// symbols for the modules already present in the target.
func NewDbgHelp(hProcess windows.Handle) (*DbgHelp, error) {
	procSymSetOptions.Call(uintptr(_SYMOPT_UNDNAME | _SYMOPT_DEFERRED_LOADS | _SYMOPT_LOAD_LINES))
	r1, _, e1 := procSymInitializeW.Call(uintptr(hProcess), 0, 1)
	if r1 == 0 {
		return nil, fmt.Errorf("SymInitialize failed: %v", e1)
	}
	return &DbgHelp{hProcess: hProcess, log: logflags.SymbolsLogger()}, nil
}

func notFoundErrno(e error) bool {
	errno, ok := e.(syscall.Errno)
	if !ok {
		return false
	}
	// ERROR_MOD_NOT_FOUND, ERROR_INVALID_ADDRESS
	return errno == 126 || errno == 487
}

// FindSymbol translates addr into a Symbol. A nil Symbol with nil
// error means the engine has no symbol covering addr.
func (d *DbgHelp) FindSymbol(addr uint64) (*Symbol, error) {
	var si symbolInfoW
	si.SizeOfStruct = uint32(unsafe.Offsetof(si.Name)) + 2
	si.MaxNameLen = maxSymName

	var displacement uint64
	r1, _, e1 := procSymFromAddrW.Call(
		uintptr(d.hProcess),
		uintptr(addr),
		uintptr(unsafe.Pointer(&displacement)),
		uintptr(unsafe.Pointer(&si)))
	if r1 == 0 {
		if notFoundErrno(e1) {
			return nil, nil
		}
		return nil, fmt.Errorf("SymFromAddr %#x failed: %v", addr, e1)
	}

	n := si.NameLen
	if n > maxSymName {
		n = maxSymName
	}
	return &Symbol{
		Addr:   si.Address,
		Offset: displacement,
		Name:   windows.UTF16ToString(si.Name[:n]),
	}, nil
}

// LineForAddr returns the source location for addr, or nil if the
// engine has no line information there.
func (d *DbgHelp) LineForAddr(addr uint64) (*Line, error) {
	var line imagehlpLineW64
	line.SizeOfStruct = uint32(unsafe.Sizeof(line))

	var displacement uint32
	r1, _, e1 := procSymGetLineFromAddrW64.Call(
		uintptr(d.hProcess),
		uintptr(addr),
		uintptr(unsafe.Pointer(&displacement)),
		uintptr(unsafe.Pointer(&line)))
	if r1 == 0 {
		if notFoundErrno(e1) {
			return nil, nil
		}
		return nil, fmt.Errorf("SymGetLineFromAddr %#x failed: %v", addr, e1)
	}
	return &Line{
		File: windows.UTF16PtrToString(line.FileName),
		Line: int(line.LineNumber),
	}, nil
}

// FunctionTableAccess returns the default "address to function table
// entry" callback for StackWalk.
func (d *DbgHelp) FunctionTableAccess() uintptr {
	return procSymFunctionTableAccess64.Addr()
}

// ModuleBase returns the default "address to module base" callback for
// StackWalk.
func (d *DbgHelp) ModuleBase() uintptr {
	return procSymGetModuleBase64.Addr()
}

// StackWalk advances frame one level down the stack of hThread. It
// returns false when the walk is complete. ftable and mbase are the
// callback strategies described in the StackWalk64 documentation; pass
// FunctionTableAccess and ModuleBase for the engine defaults.
func (d *DbgHelp) StackWalk(machine uint32, hThread windows.Handle, frame *StackFrame64, context unsafe.Pointer, ftable, mbase uintptr) (bool, error) {
	r1, _, e1 := procStackWalk64.Call(
		uintptr(machine),
		uintptr(d.hProcess),
		uintptr(hThread),
		uintptr(unsafe.Pointer(frame)),
		uintptr(context),
		0, // default ReadProcessMemory
		ftable,
		mbase,
		0) // no address translation
	if r1 != 0 {
		return true, nil
	}
	// StackWalk64 reports both the end of the stack and most mid-walk
	// failures as FALSE; a meaningful errno is the only way to tell
	// them apart.
	if errno, ok := e1.(syscall.Errno); ok && errno != 0 {
		return false, fmt.Errorf("StackWalk64 failed: %v", e1)
	}
	return false, nil
}

// Close tears down the symbol engine. Failures here are logged, never
// propagated: teardown is best effort.
func (d *DbgHelp) Close() error {
	r1, _, e1 := procSymCleanup.Call(uintptr(d.hProcess))
	if r1 == 0 {
		d.log.Warnf("SymCleanup failed: %v", e1)
	}
	return nil
}
