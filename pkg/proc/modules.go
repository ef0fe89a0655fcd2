package proc

import (
	"sort"
	"sync"

	"github.com/go-pstack/pstack/pkg/handle"
	"github.com/go-pstack/pstack/pkg/lazy"
)

// Module represents one executable or library image loaded in the
// debuggee.
type Module struct {
	base uint64
	file *handle.Shared

	path lazy.Cell
	name lazy.Cell
}

func newModule(base uint64, file *handle.Shared) *Module {
	return &Module{base: base, file: file}
}

// Base returns the load address of the module.
func (m *Module) Base() uint64 {
	return m.base
}

// File returns the shared handle to the image file backing the module,
// or nil when the debug event did not deliver one.
func (m *Module) File() *handle.Shared {
	return m.file
}

// Path returns the full file system path of the image. The path is
// resolved from the file handle at most once per module and is safe to
// request from multiple goroutines concurrently.
func (m *Module) Path() (string, error) {
	v, err := m.path.Get(func() (interface{}, error) {
		s, err := modulePath(m.file)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Name returns the short module name, i.e. the final path component.
// Like Path it is computed at most once.
func (m *Module) Name() (string, error) {
	v, err := m.name.Get(func() (interface{}, error) {
		p, err := m.Path()
		if err != nil {
			return nil, err
		}
		return baseName(p), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Module) close() {
	if m.file != nil {
		m.file.Close()
	}
}

// baseName returns the final component of a path using either
// separator, so debuggee paths parse correctly on any host.
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// moduleMap holds the modules of a process sorted by descending base
// address, so that the module owning an address is the first entry
// with a base not above it.
//
// The map is mutated only by the event pumping goroutine but may be
// read concurrently by lazy accessors, hence the lock.
type moduleMap struct {
	mu   sync.RWMutex
	mods []*Module // sorted descending by base
}

func (mm *moduleMap) insert(m *Module) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	i := sort.Search(len(mm.mods), func(i int) bool { return mm.mods[i].base <= m.base })
	if i < len(mm.mods) && mm.mods[i].base == m.base {
		// A new image at a base we already track replaces the stale
		// record.
		mm.mods[i].close()
		mm.mods[i] = m
		return
	}
	mm.mods = append(mm.mods, nil)
	copy(mm.mods[i+1:], mm.mods[i:])
	mm.mods[i] = m
}

func (mm *moduleMap) remove(base uint64) *Module {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	i := sort.Search(len(mm.mods), func(i int) bool { return mm.mods[i].base <= base })
	if i >= len(mm.mods) || mm.mods[i].base != base {
		return nil
	}
	m := mm.mods[i]
	mm.mods = append(mm.mods[:i], mm.mods[i+1:]...)
	return m
}

// find returns the module with the greatest base address not above
// addr.
func (mm *moduleMap) find(addr uint64) (*Module, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	i := sort.Search(len(mm.mods), func(i int) bool { return mm.mods[i].base <= addr })
	if i == len(mm.mods) {
		return nil, false
	}
	return mm.mods[i], true
}

func (mm *moduleMap) all() []*Module {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	out := make([]*Module, len(mm.mods))
	copy(out, mm.mods)
	return out
}

func (mm *moduleMap) closeAll() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, m := range mm.mods {
		m.close()
	}
	mm.mods = nil
}
