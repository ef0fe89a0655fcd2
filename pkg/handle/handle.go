// Package handle provides exclusive and shared containers for native
// operating system handles. Handles are stored as uintptr so the
// containers compile on every platform; on Windows they hold a
// syscall.Handle.
package handle

import "sync"

// Handle is a raw operating system handle.
type Handle uintptr

// Invalid is the zero handle. Windows additionally uses ^Handle(0)
// (INVALID_HANDLE_VALUE) for some APIs; Good treats both as invalid.
const Invalid Handle = 0

// Deleter releases a native handle when its container lets go of it.
type Deleter func(Handle) error

// Exclusive owns a single native handle for its whole lifetime.
// It is not safe for concurrent use.
type Exclusive struct {
	h   Handle
	del Deleter
}

// NewExclusive wraps h. del may be nil for handles that do not need to
// be released.
func NewExclusive(h Handle, del Deleter) *Exclusive {
	return &Exclusive{h: h, del: del}
}

// Get returns the wrapped handle without transferring ownership.
func (e *Exclusive) Get() Handle {
	return e.h
}

// Good reports whether the container holds a usable handle.
func (e *Exclusive) Good() bool {
	return e.h != Invalid && e.h != ^Handle(0)
}

// Reset releases the current handle, if any, and takes ownership of h.
func (e *Exclusive) Reset(h Handle) error {
	err := e.Close()
	e.h = h
	return err
}

// Close releases the handle. Closing an empty container is a no-op.
func (e *Exclusive) Close() error {
	if !e.Good() {
		e.h = Invalid
		return nil
	}
	h := e.h
	e.h = Invalid
	if e.del == nil {
		return nil
	}
	return e.del(h)
}

// Shared is a reference counted native handle. The deleter runs exactly
// once, when the last holder calls Close. Every Acquire must be
// balanced by exactly one Close.
//
// Shared is safe for concurrent use by multiple goroutines.
type Shared struct {
	mu   sync.Mutex
	refs int
	h    Handle
	del  Deleter
}

// NewShared wraps h with an initial reference count of one.
func NewShared(h Handle, del Deleter) *Shared {
	return &Shared{refs: 1, h: h, del: del}
}

// Acquire adds a reference and returns the receiver for convenience.
// Acquire after the last Close is a programming error.
func (s *Shared) Acquire() *Shared {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs <= 0 {
		panic("handle: Acquire on a released Shared handle")
	}
	s.refs++
	return s
}

// Get returns the wrapped handle without affecting the reference count.
func (s *Shared) Get() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

// Good reports whether the container still holds a usable handle.
func (s *Shared) Good() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs > 0 && s.h != Invalid && s.h != ^Handle(0)
}

// Close drops one reference. The handle is released when the count
// reaches zero; later calls are no-ops.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs <= 0 {
		return nil
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	h := s.h
	s.h = Invalid
	if s.del == nil || h == Invalid || h == ^Handle(0) {
		return nil
	}
	return s.del(h)
}
