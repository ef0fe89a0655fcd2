package proc

import (
	"github.com/go-pstack/pstack/pkg/handle"
	"github.com/go-pstack/pstack/pkg/lazy"
	"github.com/go-pstack/pstack/pkg/symbols"
)

// Thread represents a thread of execution in the debuggee.
type Thread struct {
	// ID is the operating system thread identifier.
	ID int

	dbp     *Process
	hThread handle.Handle
	stack   lazy.Cell
}

// StackOptions configures a stack walk.
type StackOptions struct {
	// MaxDepth bounds the number of frames walked; zero means the
	// default limit.
	MaxDepth int
	// ImageCache, when non-nil, enables falling back to the module's
	// own symbol table for frames the symbol engine cannot name.
	ImageCache *symbols.Cache
	// Annotate decodes the instruction at the innermost frame's
	// program counter.
	Annotate bool
	// FunctionTableAccess and ModuleBase override the two StackWalk64
	// callback strategies; zero selects the symbol engine defaults.
	FunctionTableAccess uintptr
	ModuleBase          uintptr
}

// Stackframe is an immutable snapshot of one call stack level.
type Stackframe struct {
	// PC is the program counter of the frame.
	PC uint64
	// FP is the frame pointer.
	FP uint64
	// Ret is the address the frame returns to, zero for the outermost
	// frame.
	Ret uint64
	// Module is the image whose address range contains PC, if known.
	Module *Module
	// Symbol names the function containing PC, if resolution
	// succeeded.
	Symbol *symbols.Symbol
	// Line is the source location of PC, if available.
	Line *symbols.Line
	// Instruction is the decoded instruction at PC, only filled for
	// the innermost frame when requested.
	Instruction string
}

// Stacktrace walks the thread's call stack from the innermost frame
// outward. The walk runs at most once per thread: the completed trace
// is memoized and returned to every later caller, and concurrent
// first-time callers all observe the same completed trace. A failed
// walk is not memoized, so it may be retried. The options of the call
// that completes the walk are the ones that take effect.
//
// The thread must be stopped, which the debug event model guarantees
// while an event is being dispatched. Requesting a trace after the
// process exited is an error.
func (t *Thread) Stacktrace(opts *StackOptions) ([]Stackframe, error) {
	if opts == nil {
		opts = &StackOptions{}
	}
	v, err := t.stack.Get(func() (interface{}, error) {
		frames, err := t.dbp.walkFn(t, opts)
		if err != nil {
			return nil, err
		}
		return frames, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Stackframe), nil
}
