package proc

import (
	"errors"
	"testing"
)

type recordingListener struct {
	name    string
	handled bool
	err     error
	panics  bool
	seen    []*Event
	order   *[]string
}

func (l *recordingListener) HandleEvent(p *Process, ev *Event) (bool, error) {
	if l.order != nil {
		*l.order = append(*l.order, l.name)
	}
	l.seen = append(l.seen, ev)
	if l.panics {
		panic("listener exploded")
	}
	return l.handled, l.err
}

func testEvent() *Event {
	return &Event{Pid: 100, Tid: 200, Payload: &CreateThreadPayload{StartAddress: 0x1000}}
}

func TestDispatchAggregatesHandled(t *testing.T) {
	cases := []struct {
		handled []bool
		want    bool
	}{
		{[]bool{false, false}, false},
		{[]bool{true, false}, true},
		{[]bool{false, true}, true},
		{[]bool{true, true}, true},
		{nil, false},
	}
	for i, c := range cases {
		p := newProcess(1)
		for _, h := range c.handled {
			p.RegisterListener(&recordingListener{handled: h})
		}
		got, err := p.dispatch(testEvent())
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got != c.want {
			t.Errorf("case %d: handled = %v, want %v", i, got, c.want)
		}
	}
}

func TestDispatchOrderAndDelivery(t *testing.T) {
	p := newProcess(1)
	var order []string
	a := &recordingListener{name: "a", order: &order}
	b := &recordingListener{name: "b", order: &order}
	c := &recordingListener{name: "c", order: &order}
	p.RegisterListener(a)
	p.RegisterListener(b)
	p.RegisterListener(c)

	ev := testEvent()
	if _, err := p.dispatch(ev); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("dispatch order %v, want [a b c]", order)
	}
	for _, l := range []*recordingListener{a, b, c} {
		if len(l.seen) != 1 || l.seen[0] != ev {
			t.Errorf("listener %s saw %v, want the dispatched event exactly once", l.name, l.seen)
		}
	}
}

func TestDispatchListenerErrorAborts(t *testing.T) {
	p := newProcess(1)
	boom := errors.New("boom")
	var order []string
	p.RegisterListener(&recordingListener{name: "a", order: &order, handled: true})
	p.RegisterListener(&recordingListener{name: "b", order: &order, err: boom})
	p.RegisterListener(&recordingListener{name: "c", order: &order})

	handled, err := p.dispatch(testEvent())
	var lerr *ListenerError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want a ListenerError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("ListenerError does not wrap the cause")
	}
	if len(order) != 2 {
		t.Errorf("listeners after the failing one still ran: %v", order)
	}
	if !handled {
		t.Errorf("handled result from listeners before the failure was lost")
	}
}

func TestDispatchListenerPanicRecovered(t *testing.T) {
	p := newProcess(1)
	p.RegisterListener(&recordingListener{panics: true})
	p.RegisterListener(&recordingListener{handled: true})

	_, err := p.dispatch(testEvent())
	var lerr *ListenerError
	if !errors.As(err, &lerr) {
		t.Fatalf("panic did not surface as ListenerError: %v", err)
	}

	// The loop itself survives: a later event dispatches cleanly once
	// the bad listener is gone.
	p2 := newProcess(2)
	ok := &recordingListener{handled: true}
	p2.RegisterListener(ok)
	handled, err := p2.dispatch(testEvent())
	if err != nil || !handled {
		t.Errorf("dispatch after panic: handled=%v err=%v", handled, err)
	}
}

func TestPayloadKinds(t *testing.T) {
	payloads := []EventPayload{
		&CreateProcessPayload{},
		&CreateThreadPayload{},
		&ExceptionPayload{},
		&ExitProcessPayload{},
		&ExitThreadPayload{},
		&LoadDLLPayload{},
		&UnloadDLLPayload{},
		&OutputDebugStringPayload{},
		&RIPErrorPayload{},
	}
	seen := map[string]bool{}
	for _, p := range payloads {
		k := p.Kind()
		if k == "" {
			t.Errorf("%T has an empty kind", p)
		}
		if seen[k] {
			t.Errorf("duplicate kind %q", k)
		}
		seen[k] = true
	}
	if len(seen) != 9 {
		t.Errorf("%d distinct payload kinds, want 9", len(seen))
	}
}

func TestWaitOutcomeString(t *testing.T) {
	if EventHandled.String() != "handled" || EventUnhandled.String() != "unhandled" || WaitTimeout.String() != "timeout" {
		t.Errorf("unexpected outcome strings: %v %v %v", EventHandled, EventUnhandled, WaitTimeout)
	}
}
