package symbols

import (
	"testing"

	"github.com/go-pstack/pstack/pkg/pefile"
	"github.com/go-pstack/pstack/pkg/pefile/pefiletest"
)

func staticFromBuilder(t *testing.T, b *pefiletest.Builder, base uint64) *Static {
	t.Helper()
	f, err := pefile.New(b.Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := NewStatic(f, base)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFindSymbolNearest(t *testing.T) {
	const base = 0x140000000
	b := pefiletest.New()
	b.AddSymbol("first", 0x10, pefile.ClassFunction)
	b.AddSymbol("second", 0x100, pefile.ClassFunction)
	b.AddSymbol("third", 0x400, pefile.ClassFunction)
	s := staticFromBuilder(t, b, base)

	// Section is at rva 0x1000, so "second" covers [0x1100, 0x1400).
	sym, err := s.FindSymbol(base + 0x1180)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sym == nil {
		t.Fatalf("no symbol found")
	}
	if sym.Name != "second" {
		t.Errorf("name = %q, want second", sym.Name)
	}
	if sym.Addr != base+0x1100 {
		t.Errorf("addr = %#x, want %#x", sym.Addr, base+0x1100)
	}
	if sym.Offset != 0x80 {
		t.Errorf("offset = %#x, want 0x80", sym.Offset)
	}

	// Exactly on a symbol start.
	sym, err = s.FindSymbol(base + 0x1400)
	if err != nil || sym == nil || sym.Name != "third" || sym.Offset != 0 {
		t.Errorf("at start: sym=%+v err=%v, want third+0", sym, err)
	}

	// Past the last symbol still resolves to it.
	sym, err = s.FindSymbol(base + 0x9000)
	if err != nil || sym == nil || sym.Name != "third" {
		t.Errorf("past end: sym=%+v err=%v, want third", sym, err)
	}
}

func TestFindSymbolBelowEverything(t *testing.T) {
	const base = 0x140000000
	b := pefiletest.New()
	b.AddSymbol("only", 0x100, pefile.ClassFunction)
	s := staticFromBuilder(t, b, base)

	// Below the image base.
	sym, err := s.FindSymbol(base - 0x1000)
	if err != nil || sym != nil {
		t.Errorf("below base: sym=%v err=%v, want nil,nil", sym, err)
	}

	// Inside the image but before the first symbol: not found, not an
	// error.
	sym, err = s.FindSymbol(base + 0x10)
	if err != nil || sym != nil {
		t.Errorf("before first symbol: sym=%v err=%v, want nil,nil", sym, err)
	}
}

func TestFindSymbolMergesExports(t *testing.T) {
	const base = 0x140000000
	b := pefiletest.New()
	b.AddSymbol("internal", 0x10, pefile.ClassStatic)
	b.AddExport("Exported", 0x1800)
	s := staticFromBuilder(t, b, base)

	sym, err := s.FindSymbol(base + 0x1810)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sym == nil || sym.Name != "Exported" || sym.Offset != 0x10 {
		t.Errorf("sym = %+v, want Exported+0x10", sym)
	}
}

func TestOpenStaticDefaultBase(t *testing.T) {
	b := pefiletest.New()
	b.ImageBase = 0x180000000
	b.AddSymbol("probe", 0x20, pefile.ClassExternal)

	f, err := pefile.New(b.Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := NewStatic(f, f.ImageBase())
	defer s.Close()

	if s.Base() != 0x180000000 {
		t.Errorf("base = %#x, want 0x180000000", s.Base())
	}
}
