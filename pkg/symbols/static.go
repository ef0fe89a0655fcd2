package symbols

import (
	"sort"

	"github.com/go-pstack/pstack/pkg/lazy"
	"github.com/go-pstack/pstack/pkg/logflags"
	"github.com/go-pstack/pstack/pkg/pefile"
)

// Static resolves addresses against the symbol information contained
// in the module image itself: the COFF symbol table and the export
// directory. It owns the parsed image.
type Static struct {
	f    *pefile.File
	base uint64
	tbl  lazy.Cell
	log  logflags.Logger
}

type staticSym struct {
	rva  uint32
	name string
}

// NewStatic resolves addresses inside the image f loaded at base.
func NewStatic(f *pefile.File, base uint64) *Static {
	return &Static{f: f, base: base, log: logflags.SymbolsLogger()}
}

// OpenStatic maps the image at path and resolves against it. When base
// is zero the link-time image base from the header is used.
func OpenStatic(path string, base uint64) (*Static, error) {
	f, err := pefile.Open(path)
	if err != nil {
		return nil, err
	}
	if base == 0 {
		base = f.ImageBase()
	}
	return NewStatic(f, base), nil
}

// Base returns the load address the resolver maps addresses against.
func (s *Static) Base() uint64 {
	return s.base
}

// FindSymbol returns the symbol with the greatest start address not
// above addr, or nil if addr precedes every known symbol.
func (s *Static) FindSymbol(addr uint64) (*Symbol, error) {
	if addr < s.base {
		return nil, nil
	}
	rva := addr - s.base
	if rva > uint64(^uint32(0)) {
		return nil, nil
	}

	v, err := s.tbl.Get(func() (interface{}, error) { return s.buildTable() })
	if err != nil {
		return nil, err
	}
	tbl := v.([]staticSym)
	if len(tbl) == 0 {
		return nil, nil
	}

	// First entry with rva > target, then step back.
	i := sort.Search(len(tbl), func(i int) bool { return uint64(tbl[i].rva) > rva })
	if i == 0 {
		return nil, nil
	}
	sym := tbl[i-1]
	return &Symbol{
		Addr:   s.base + uint64(sym.rva),
		Offset: rva - uint64(sym.rva),
		Name:   sym.name,
	}, nil
}

// buildTable runs at most once per resolver, on first lookup.
func (s *Static) buildTable() (interface{}, error) {
	var tbl []staticSym

	sv, err := s.f.Symbols()
	if err != nil {
		return nil, err
	}
	for c := sv.Begin(); c.Valid(); c = c.NextRecord() {
		rec, err := c.At()
		if err != nil {
			return nil, err
		}
		if rec.Name == "" || rec.SectionNumber <= 0 || int(rec.SectionNumber) > len(s.f.Sections) {
			continue
		}
		switch rec.StorageClass {
		case pefile.ClassExternal, pefile.ClassStatic, pefile.ClassFunction:
		default:
			continue
		}
		sec := &s.f.Sections[rec.SectionNumber-1]
		tbl = append(tbl, staticSym{rva: sec.VirtualAddress + rec.Value, name: rec.Name})
	}

	ev, err := s.f.Exports()
	if err != nil {
		return nil, err
	}
	for i := 0; i < ev.Count(); i++ {
		e, err := ev.At(i)
		if err != nil {
			return nil, err
		}
		if e.Name == "" || e.RVA == 0 {
			continue
		}
		tbl = append(tbl, staticSym{rva: e.RVA, name: e.Name})
	}

	sort.Slice(tbl, func(i, j int) bool { return tbl[i].rva < tbl[j].rva })

	// Collapse duplicate addresses, keeping the first name.
	out := tbl[:0]
	for _, sym := range tbl {
		if len(out) > 0 && out[len(out)-1].rva == sym.rva {
			continue
		}
		out = append(out, sym)
	}
	s.log.Debugf("built symbol table: %d entries", len(out))
	return out, nil
}

// Close releases the parsed image. Every view derived from it becomes
// invalid.
func (s *Static) Close() error {
	return s.f.Close()
}
