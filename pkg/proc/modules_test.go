package proc

import (
	"math/rand"
	"testing"
)

func TestModuleMapLookup(t *testing.T) {
	var mm moduleMap
	bases := []uint64{0x400000, 0x7ff000000000, 0x10000000}
	for _, b := range bases {
		mm.insert(newModule(b, nil))
	}

	cases := []struct {
		addr uint64
		want uint64
		ok   bool
	}{
		{0x3fffff, 0, false},
		{0x400000, 0x400000, true},
		{0x401234, 0x400000, true},
		{0x10000001, 0x10000000, true},
		{0x7ff000001000, 0x7ff000000000, true},
		{^uint64(0), 0x7ff000000000, true},
	}
	for _, c := range cases {
		m, ok := mm.find(c.addr)
		if ok != c.ok {
			t.Errorf("find(%#x) ok = %v, want %v", c.addr, ok, c.ok)
			continue
		}
		if ok && m.Base() != c.want {
			t.Errorf("find(%#x) = %#x, want %#x", c.addr, m.Base(), c.want)
		}
	}
}

func TestModuleMapOrderIndependent(t *testing.T) {
	bases := []uint64{1 << 20, 2 << 20, 3 << 20, 4 << 20, 5 << 20}
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]uint64(nil), bases...)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		var mm moduleMap
		for _, b := range shuffled {
			mm.insert(newModule(b, nil))
		}

		all := mm.all()
		if len(all) != len(bases) {
			t.Fatalf("trial %d: %d modules, want %d", trial, len(all), len(bases))
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].Base() <= all[i].Base() {
				t.Fatalf("trial %d: modules not sorted descending: %#x before %#x",
					trial, all[i-1].Base(), all[i].Base())
			}
		}
		m, ok := mm.find(3<<20 + 5)
		if !ok || m.Base() != 3<<20 {
			t.Fatalf("trial %d: lookup broken after shuffle", trial)
		}
	}
}

func TestModuleMapRemove(t *testing.T) {
	var mm moduleMap
	mm.insert(newModule(0x1000, nil))
	mm.insert(newModule(0x2000, nil))

	if m := mm.remove(0x1000); m == nil || m.Base() != 0x1000 {
		t.Fatalf("remove(0x1000) = %v", m)
	}
	if m := mm.remove(0x1000); m != nil {
		t.Fatalf("second remove returned %v", m)
	}

	// The address no longer resolves to the unloaded module.
	m, ok := mm.find(0x1800)
	if ok && m.Base() == 0x1000 {
		t.Errorf("stale module record after unload")
	}
}

func TestModuleMapReplaceSameBase(t *testing.T) {
	var mm moduleMap
	old := newModule(0x5000, nil)
	mm.insert(old)
	repl := newModule(0x5000, nil)
	mm.insert(repl)

	all := mm.all()
	if len(all) != 1 {
		t.Fatalf("%d modules after same-base insert, want 1", len(all))
	}
	if all[0] != repl {
		t.Errorf("stale record kept after same-base insert")
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		`C:\Windows\System32\ntdll.dll`: "ntdll.dll",
		`/usr/lib/foo.so`:               "foo.so",
		`bare.exe`:                      "bare.exe",
		``:                              "",
	}
	for in, want := range cases {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}
