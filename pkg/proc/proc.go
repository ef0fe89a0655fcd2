// Package proc implements the debug event driven model of an attached
// Windows process: its threads, its loaded modules and the stack
// traces derived from them.
package proc

import (
	"sort"
	"sync"

	"github.com/go-pstack/pstack/pkg/handle"
	"github.com/go-pstack/pstack/pkg/logflags"
)

// Process represents all of the information the debugger is holding
// onto regarding one attached process.
type Process struct {
	pid int

	// hProcess is exclusively owned for the process's debug lifetime.
	// The system closes debug event handles itself when the exit
	// process event is continued, so no deleter is attached.
	hProcess   *handle.Exclusive
	entryPoint uint64
	execPath   string

	// engine is the registry this process was attached through; used
	// to route debug events that name a sibling attachment.
	engine *Engine

	threadsMu sync.RWMutex
	threads   map[int]*Thread

	modules moduleMap

	listeners []EventListener

	walkFn func(*Thread, *StackOptions) ([]Stackframe, error)

	exited   bool
	detached bool

	os  *osProcessDetails
	log logflags.Logger
}

func newProcess(pid int) *Process {
	p := &Process{
		pid:      pid,
		hProcess: handle.NewExclusive(handle.Invalid, nil),
		threads:  make(map[int]*Thread),
		os:       new(osProcessDetails),
		log:      logflags.EventsLogger(),
	}
	p.walkFn = p.walkStack
	return p
}

// Pid returns the process ID.
func (p *Process) Pid() int {
	return p.pid
}

// EntryPoint returns the entry point address of the main image, known
// after the create process event was seen.
func (p *Process) EntryPoint() uint64 {
	return p.entryPoint
}

// ExecutablePath returns the path of the main image.
func (p *Process) ExecutablePath() string {
	return p.execPath
}

// Valid returns whether the process is still attached to and has not
// exited.
func (p *Process) Valid() (bool, error) {
	if p.detached {
		return false, ProcessDetachedError{}
	}
	if p.exited {
		return false, ErrProcessExited{Pid: p.pid}
	}
	return true, nil
}

// Threads returns the live threads of the process, ordered by thread
// id.
func (p *Process) Threads() []*Thread {
	p.threadsMu.RLock()
	defer p.threadsMu.RUnlock()
	r := make([]*Thread, 0, len(p.threads))
	for _, t := range p.threads {
		r = append(r, t)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// FindThread returns the thread with the given id.
func (p *Process) FindThread(tid int) (*Thread, bool) {
	p.threadsMu.RLock()
	defer p.threadsMu.RUnlock()
	t, ok := p.threads[tid]
	return t, ok
}

func (p *Process) addThread(tid int, h handle.Handle) *Thread {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	if t, ok := p.threads[tid]; ok {
		return t
	}
	t := &Thread{ID: tid, dbp: p, hThread: h}
	p.threads[tid] = t
	return t
}

func (p *Process) removeThread(tid int) {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	delete(p.threads, tid)
}

// routeTarget returns the process record a debug event for pid belongs
// to. The OS delivers events for every debuggee attached from the
// debugger thread, so an event naming a sibling attachment must mutate
// that sibling's tables, never the receiver's.
func (p *Process) routeTarget(pid int) (*Process, bool) {
	if pid == p.pid {
		return p, true
	}
	if p.engine == nil {
		return nil, false
	}
	return p.engine.Process(pid)
}

// FindModule returns the module whose address range should contain
// addr: the one with the greatest base address not above it.
func (p *Process) FindModule(addr uint64) (*Module, bool) {
	return p.modules.find(addr)
}

// Modules returns the loaded modules sorted by descending base
// address.
func (p *Process) Modules() []*Module {
	return p.modules.all()
}

func (p *Process) postExit() {
	if p.exited {
		return
	}
	p.exited = true
	p.modules.closeAll()
}
