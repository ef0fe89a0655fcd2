package proc

import (
	"fmt"
	"sync"

	"github.com/go-pstack/pstack/pkg/logflags"
)

// Engine is the registry of attached processes. It serializes attach
// and detach so a pid cannot be attached twice.
type Engine struct {
	mu    sync.Mutex
	procs map[int]*Process
	log   logflags.Logger
}

// NewEngine returns an empty registry.
func NewEngine() *Engine {
	return &Engine{
		procs: make(map[int]*Process),
		log:   logflags.EngineLogger(),
	}
}

// EnableDebugPrivilege asks the operating system for the privilege
// needed to debug processes owned by other users. Failure is not fatal:
// debugging the caller's own processes still works.
func (e *Engine) EnableDebugPrivilege() error {
	return enableDebugPrivilege()
}

// Attach attaches to the process identified by pid and registers it.
// killOnExit controls whether the debuggee is terminated when the
// debugger exits without detaching.
func (e *Engine) Attach(pid int, killOnExit bool) (*Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.procs[pid]; ok {
		return nil, fmt.Errorf("already attached to process %d", pid)
	}
	p := newProcess(pid)
	p.engine = e
	if err := attach(p, killOnExit); err != nil {
		return nil, err
	}
	e.log.Debugf("attached to process %d", pid)
	e.procs[pid] = p
	return p, nil
}

// Process returns the attached process with the given pid.
func (e *Engine) Process(pid int) (*Process, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.procs[pid]
	return p, ok
}

// Detach stops debugging pid and removes it from the registry. When
// kill is set the debuggee is terminated instead of resumed.
func (e *Engine) Detach(pid int, kill bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.procs[pid]
	if !ok {
		return fmt.Errorf("not attached to process %d", pid)
	}
	delete(e.procs, pid)
	e.log.Debugf("detaching from process %d (kill=%v)", pid, kill)
	return detach(p, kill)
}
