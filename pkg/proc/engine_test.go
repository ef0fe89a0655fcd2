package proc

import "testing"

// The OS queues debug events for every debuggee attached from the
// debugger thread on the same port. An event naming a sibling
// attachment must resolve to that sibling's record, so its threads and
// modules never land in the receiver's tables.
func TestEventRouting(t *testing.T) {
	e := NewEngine()
	pa := newProcess(100)
	pa.engine = e
	pb := newProcess(200)
	pb.engine = e
	e.procs[pa.pid] = pa
	e.procs[pb.pid] = pb

	if got, ok := pa.routeTarget(100); !ok || got != pa {
		t.Fatalf("event for the receiver's own pid routed to %v", got)
	}
	got, ok := pa.routeTarget(200)
	if !ok {
		t.Fatalf("event for sibling pid 200 was not routed")
	}
	if got != pb {
		t.Errorf("event for pid 200 routed to pid %d", got.Pid())
	}
	if _, ok := pa.routeTarget(300); ok {
		t.Errorf("event for unknown pid 300 resolved to an attached process")
	}
}

func TestEventRoutingWithoutEngine(t *testing.T) {
	p := newProcess(100)
	if got, ok := p.routeTarget(100); !ok || got != p {
		t.Fatalf("event for the process's own pid rejected")
	}
	if _, ok := p.routeTarget(200); ok {
		t.Errorf("event for a foreign pid accepted without a registry")
	}
}

func TestProcessHandleOwnership(t *testing.T) {
	p := newProcess(42)
	if p.hProcess.Good() {
		t.Fatalf("fresh process claims a usable handle")
	}
	if err := p.hProcess.Reset(5); err != nil {
		t.Fatalf("taking ownership of the process handle: %v", err)
	}
	if !p.hProcess.Good() || p.hProcess.Get() != 5 {
		t.Errorf("process handle lost after it was set")
	}
}
