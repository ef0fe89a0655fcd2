package pefile

import (
	"testing"

	"github.com/go-pstack/pstack/pkg/pefile/pefiletest"
)

func TestExportViewNamedSubset(t *testing.T) {
	b := pefiletest.New()
	b.OrdinalBase = 5
	b.AddExport("Alpha", 0x1100)
	b.AddExport("", 0x1200) // by ordinal only
	b.AddExport("Beta", 0x1300)
	b.AddExport("", 0x1400)
	b.AddExport("Gamma", 0x1500)

	f, err := New(b.Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	v, err := f.Exports()
	if err != nil {
		t.Fatalf("exports: %v", err)
	}
	if v.Count() != 5 {
		t.Fatalf("count = %d, want 5", v.Count())
	}

	want := []struct {
		name string
		rva  uint32
	}{
		{"Alpha", 0x1100},
		{"", 0x1200},
		{"Beta", 0x1300},
		{"", 0x1400},
		{"Gamma", 0x1500},
	}
	named := 0
	for i := range want {
		e, err := v.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if e.Name != want[i].name || e.RVA != want[i].rva {
			t.Errorf("At(%d) = %q %#x, want %q %#x", i, e.Name, e.RVA, want[i].name, want[i].rva)
		}
		if e.Ordinal != uint32(5+i) {
			t.Errorf("At(%d) ordinal = %d, want %d", i, e.Ordinal, 5+i)
		}
		if e.Name != "" {
			named++
		}
	}
	if named != 3 {
		t.Errorf("got %d named exports, want 3", named)
	}
}

func TestExportViewEmpty(t *testing.T) {
	f, err := New(pefiletest.New().Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	v, err := f.Exports()
	if err != nil {
		t.Fatalf("exports: %v", err)
	}
	if v.Count() != 0 {
		t.Errorf("count = %d, want 0", v.Count())
	}
}

func TestExportNameStripping(t *testing.T) {
	// MSVC style image: names kept verbatim.
	f, err := New(pefiletest.New().AddExport("_KeepMe", 0x1100).Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, _ := f.Exports()
	e, err := v.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	if e.Name != "_KeepMe" {
		t.Errorf("MSVC image: name = %q, want _KeepMe", e.Name)
	}
	f.Close()

	// MinGW style image: exactly one leading underscore stripped.
	f, err = New(pefiletest.New().MinGW().AddExport("__StripOne", 0x1100).Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()
	v, _ = f.Exports()
	e, err = v.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	if e.Name != "_StripOne" {
		t.Errorf("MinGW image: name = %q, want _StripOne", e.Name)
	}
}

func TestGnuMangledHeuristic(t *testing.T) {
	msvc, err := New(pefiletest.New().Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer msvc.Close()
	if msvc.gnuMangled() {
		t.Errorf("MSVC profile detected as GNU")
	}

	mingw, err := New(pefiletest.New().MinGW().Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer mingw.Close()
	if !mingw.gnuMangled() {
		t.Errorf("MinGW profile not detected as GNU")
	}
}
