// Package winutil holds the Windows CPU context structures shared by
// the thread and stack walking code.
package winutil

import (
	"fmt"
	"unsafe"
)

// CONTEXT flag values for GetThreadContext.
const (
	contextAMD64 = 0x100000

	ContextControl        = contextAMD64 | 0x1
	ContextInteger        = contextAMD64 | 0x2
	ContextSegments       = contextAMD64 | 0x4
	ContextFloatingPoint  = contextAMD64 | 0x8
	ContextDebugRegisters = contextAMD64 | 0x10

	ContextFull = ContextControl | ContextInteger | ContextFloatingPoint
	ContextAll  = ContextFull | ContextSegments | ContextDebugRegisters
)

// Register is a single named CPU register value.
type Register struct {
	Name  string
	Value uint64
}

// AMD64Registers is the register snapshot of a stopped thread.
type AMD64Registers struct {
	rip     uint64
	rsp     uint64
	rbp     uint64
	Context *CONTEXT
}

// NewAMD64Registers creates an AMD64Registers from a CONTEXT struct.
func NewAMD64Registers(context *CONTEXT) *AMD64Registers {
	return &AMD64Registers{
		rip:     context.Rip,
		rsp:     context.Rsp,
		rbp:     context.Rbp,
		Context: context,
	}
}

// PC returns the current program counter, i.e. the RIP CPU register.
func (r *AMD64Registers) PC() uint64 {
	return r.rip
}

// SP returns the stack pointer location, i.e. the RSP register.
func (r *AMD64Registers) SP() uint64 {
	return r.rsp
}

// BP returns the frame pointer, i.e. the RBP register.
func (r *AMD64Registers) BP() uint64 {
	return r.rbp
}

// Slice returns the general purpose registers as (name, value) pairs.
func (r *AMD64Registers) Slice() []Register {
	c := r.Context
	var regs = []struct {
		k string
		v uint64
	}{
		{"Rip", c.Rip},
		{"Rsp", c.Rsp},
		{"Rax", c.Rax},
		{"Rbx", c.Rbx},
		{"Rcx", c.Rcx},
		{"Rdx", c.Rdx},
		{"Rdi", c.Rdi},
		{"Rsi", c.Rsi},
		{"Rbp", c.Rbp},
		{"R8", c.R8},
		{"R9", c.R9},
		{"R10", c.R10},
		{"R11", c.R11},
		{"R12", c.R12},
		{"R13", c.R13},
		{"R14", c.R14},
		{"R15", c.R15},
		{"Rflags", uint64(c.EFlags)},
	}
	out := make([]Register, len(regs))
	for i, reg := range regs {
		out[i] = Register{Name: reg.k, Value: reg.v}
	}
	return out
}

func (r *AMD64Registers) String() string {
	return fmt.Sprintf("rip=%#x rsp=%#x rbp=%#x", r.rip, r.rsp, r.rbp)
}

// M128A tracks the _M128A windows struct.
type M128A struct {
	Low  uint64
	High int64
}

// XMM_SAVE_AREA32 tracks the _XMM_SAVE_AREA32 windows struct.
type XMM_SAVE_AREA32 struct {
	ControlWord    uint16
	StatusWord     uint16
	TagWord        byte
	Reserved1      byte
	ErrorOpcode    uint16
	ErrorOffset    uint32
	ErrorSelector  uint16
	Reserved2      uint16
	DataOffset     uint32
	DataSelector   uint16
	Reserved3      uint16
	MxCsr          uint32
	MxCsr_Mask     uint32
	FloatRegisters [8]M128A
	XmmRegisters   [256]byte
	Reserved4      [96]byte
}

// CONTEXT tracks the _CONTEXT of windows.
type CONTEXT struct {
	P1Home uint64
	P2Home uint64
	P3Home uint64
	P4Home uint64
	P5Home uint64
	P6Home uint64

	ContextFlags uint32
	MxCsr        uint32

	SegCs  uint16
	SegDs  uint16
	SegEs  uint16
	SegFs  uint16
	SegGs  uint16
	SegSs  uint16
	EFlags uint32

	Dr0 uint64
	Dr1 uint64
	Dr2 uint64
	Dr3 uint64
	Dr6 uint64
	Dr7 uint64

	Rax uint64
	Rcx uint64
	Rdx uint64
	Rbx uint64
	Rsp uint64
	Rbp uint64
	Rsi uint64
	Rdi uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	Rip uint64

	FltSave XMM_SAVE_AREA32

	VectorRegister [26]M128A
	VectorControl  uint64

	DebugControl         uint64
	LastBranchToRip      uint64
	LastBranchFromRip    uint64
	LastExceptionToRip   uint64
	LastExceptionFromRip uint64
}

// NewCONTEXT allocates a Windows CONTEXT structure aligned to 16 bytes,
// as GetThreadContext requires.
func NewCONTEXT() *CONTEXT {
	var c *CONTEXT
	buf := make([]byte, unsafe.Sizeof(*c)+15)
	return (*CONTEXT)(unsafe.Pointer((uintptr(unsafe.Pointer(&buf[15]))) &^ 15))
}
