package handle

import "testing"

func TestExclusiveCloseRunsDeleterOnce(t *testing.T) {
	deleted := 0
	e := NewExclusive(Handle(5), func(h Handle) error {
		if h != 5 {
			t.Errorf("deleter got handle %v, want 5", h)
		}
		deleted++
		return nil
	})
	if !e.Good() {
		t.Fatalf("handle should be good")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleter ran %d times, want 1", deleted)
	}
}

func TestExclusiveReset(t *testing.T) {
	deleted := []Handle{}
	del := func(h Handle) error {
		deleted = append(deleted, h)
		return nil
	}
	e := NewExclusive(Handle(1), del)
	if err := e.Reset(Handle(2)); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if e.Get() != 2 {
		t.Errorf("got %v, want 2", e.Get())
	}
	e.Close()
	if len(deleted) != 2 || deleted[0] != 1 || deleted[1] != 2 {
		t.Errorf("deleted %v, want [1 2]", deleted)
	}
}

func TestSharedDeleterRunsAtZeroRefs(t *testing.T) {
	deleted := 0
	s := NewShared(Handle(9), func(h Handle) error {
		deleted++
		return nil
	})
	s.Acquire()
	s.Acquire()

	s.Close()
	s.Close()
	if deleted != 0 {
		t.Fatalf("deleter ran with live references")
	}
	s.Close()
	if deleted != 1 {
		t.Fatalf("deleter ran %d times, want 1", deleted)
	}
	if s.Good() {
		t.Errorf("released handle still reports good")
	}
	// Extra closes after release are no-ops.
	s.Close()
	if deleted != 1 {
		t.Errorf("deleter ran again on extra close")
	}
}

func TestSharedAcquireAfterReleasePanics(t *testing.T) {
	s := NewShared(Handle(3), nil)
	s.Close()
	defer func() {
		if recover() == nil {
			t.Errorf("Acquire after release did not panic")
		}
	}()
	s.Acquire()
}
