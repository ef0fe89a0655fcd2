package pefile

import (
	"testing"

	"github.com/go-pstack/pstack/pkg/pefile/pefiletest"
)

func symFile(t *testing.T, b *pefiletest.Builder) *File {
	t.Helper()
	f, err := New(b.Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSymViewRecords(t *testing.T) {
	b := pefiletest.New()
	b.AddSymbol("main", 0x10, ClassExternal)
	b.AddSymbol("helper", 0x40, ClassStatic)
	b.AddSymbol("a_name_longer_than_eight_bytes", 0x80, ClassFunction)
	f := symFile(t, b)

	v, err := f.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if v.Len() != 3 {
		t.Fatalf("len = %d, want 3", v.Len())
	}

	r, err := v.At(2)
	if err != nil {
		t.Fatalf("At(2): %v", err)
	}
	if r.Name != "a_name_longer_than_eight_bytes" {
		t.Errorf("long name = %q", r.Name)
	}
	if r.Value != 0x80 || r.SectionNumber != 1 || r.StorageClass != ClassFunction {
		t.Errorf("record = %+v", r)
	}
}

func TestCursorArithmetic(t *testing.T) {
	b := pefiletest.New()
	b.AddSymbol("one", 1, ClassExternal)
	b.AddSymbol("two", 2, ClassExternal)
	b.AddSymbol("three", 3, ClassExternal)
	f := symFile(t, b)

	v, err := f.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}

	begin, end := v.Begin(), v.End()
	if d := end.Sub(begin); d != v.Len() {
		t.Errorf("End-Begin = %d, want %d", d, v.Len())
	}
	if begin.Add(v.Len()).Valid() {
		t.Errorf("Begin+Len should equal End and be invalid to dereference")
	}

	r, err := begin.Index(1)
	if err != nil {
		t.Fatalf("Index(1): %v", err)
	}
	if r.Name != "two" {
		t.Errorf("Index(1) = %q, want two", r.Name)
	}

	back := begin.Add(2).Add(-2)
	if back.Sub(begin) != 0 {
		t.Errorf("cursor arithmetic did not round trip")
	}
}

func TestCursorSkipsAuxRecords(t *testing.T) {
	b := pefiletest.New()
	b.AddSymbolAux("withaux", 1, ClassExternal, 2)
	b.AddSymbol("after", 2, ClassExternal)
	f := symFile(t, b)

	v, err := f.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if v.Len() != 4 {
		t.Fatalf("len = %d, want 4 (aux records included)", v.Len())
	}

	var names []string
	for c := v.Begin(); c.Valid(); c = c.NextRecord() {
		r, err := c.At()
		if err != nil {
			t.Fatalf("At: %v", err)
		}
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "withaux" || names[1] != "after" {
		t.Errorf("walked %v, want [withaux after]", names)
	}
}

func TestSymViewEmpty(t *testing.T) {
	f := symFile(t, pefiletest.New())
	v, err := f.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if v.Len() != 0 {
		t.Errorf("len = %d, want 0", v.Len())
	}
	if v.Begin().Valid() {
		t.Errorf("begin cursor of empty view is valid")
	}
}
