package proc

import (
	"unsafe"

	sys "golang.org/x/sys/windows"

	"github.com/go-pstack/pstack/pkg/logflags"
	"github.com/go-pstack/pstack/pkg/symbols"
)

// walkStack produces the call stack of the stopped thread t using the
// StackWalk64 machinery of the symbol engine. The thread's context is
// captured once and mutated by the walker as it unwinds.
func (p *Process) walkStack(t *Thread, opts *StackOptions) ([]Stackframe, error) {
	if ok, err := p.Valid(); !ok {
		return nil, err
	}
	sym := p.os.sym
	if sym == nil {
		return nil, ErrNoSymbolEngine
	}

	context, err := t.threadContext()
	if err != nil {
		return nil, err
	}

	var frame symbols.StackFrame64
	frame.AddrPC.Offset = context.Rip
	frame.AddrPC.Mode = symbols.AddrModeFlat
	frame.AddrFrame.Offset = context.Rbp
	frame.AddrFrame.Mode = symbols.AddrModeFlat
	frame.AddrStack.Offset = context.Rsp
	frame.AddrStack.Mode = symbols.AddrModeFlat

	ftable := opts.FunctionTableAccess
	if ftable == 0 {
		ftable = sym.FunctionTableAccess()
	}
	mbase := opts.ModuleBase
	if mbase == 0 {
		mbase = sym.ModuleBase()
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxFrameDepth
	}

	log := logflags.StackWalkLogger()
	frames := make([]Stackframe, 0, 32)
	for len(frames) < maxDepth {
		more, err := sym.StackWalk(symbols.MachineAMD64, sys.Handle(t.hThread),
			&frame, unsafe.Pointer(context), ftable, mbase)
		if err != nil {
			return nil, err
		}
		if !more || frame.AddrPC.Offset == 0 {
			break
		}

		sf := Stackframe{
			PC:  frame.AddrPC.Offset,
			FP:  frame.AddrFrame.Offset,
			Ret: frame.AddrReturn.Offset,
		}
		p.resolveFrame(&sf, opts, sym, log)
		if opts.Annotate && len(frames) == 0 {
			sf.Instruction = p.frameInstruction(sf.PC)
		}
		frames = append(frames, sf)

		// A zero return address means the outermost frame was reached.
		if frame.AddrReturn.Offset == 0 {
			break
		}
	}
	return frames, nil
}

const defaultMaxFrameDepth = 256

// resolveFrame fills in the module, symbol and line of a raw frame.
// Resolution is best effort: a frame without a symbol is still a frame.
func (p *Process) resolveFrame(sf *Stackframe, opts *StackOptions, sym *symbols.DbgHelp, log logflags.Logger) {
	if m, ok := p.FindModule(sf.PC); ok {
		sf.Module = m
	}

	s, err := sym.FindSymbol(sf.PC)
	if err != nil {
		log.Debugf("symbol lookup at %#x: %v", sf.PC, err)
	}
	if s == nil && opts.ImageCache != nil && sf.Module != nil {
		s = p.staticLookup(sf, opts.ImageCache, log)
	}
	sf.Symbol = s

	line, err := sym.LineForAddr(sf.PC)
	if err != nil {
		log.Debugf("line lookup at %#x: %v", sf.PC, err)
	}
	sf.Line = line
}

// staticLookup falls back to the symbol information of the module image
// itself when the engine has nothing for the address.
func (p *Process) staticLookup(sf *Stackframe, cache *symbols.Cache, log logflags.Logger) *symbols.Symbol {
	path, err := sf.Module.Path()
	if err != nil {
		log.Debugf("no path for module at %#x: %v", sf.Module.Base(), err)
		return nil
	}
	res, err := cache.Resolver(path, sf.Module.Base())
	if err != nil {
		log.Debugf("could not parse %s: %v", path, err)
		return nil
	}
	s, err := res.FindSymbol(sf.PC)
	if err != nil {
		log.Debugf("static lookup at %#x: %v", sf.PC, err)
		return nil
	}
	return s
}

// frameInstruction decodes the instruction at pc in the debuggee.
func (p *Process) frameInstruction(pc uint64) string {
	buf := make([]byte, maxInstructionLength)
	n, err := p.ReadMemory(buf, pc)
	if err != nil && err != ErrShortRead {
		return ""
	}
	return annotateInstruction(buf[:n], pc)
}
