package pefile

import (
	"bytes"
	"encoding/binary"
)

// SymbolRecord is one record of the COFF symbol table.
type SymbolRecord struct {
	Name               string
	Value              uint32
	SectionNumber      int16
	Type               uint16
	StorageClass       uint8
	NumberOfAuxSymbols uint8
}

// Storage classes consumed by the resolvers.
const (
	ClassExternal = 2
	ClassStatic   = 3
	ClassFunction = 101
)

// SymView is a random access view over the COFF symbol table: an array
// of fixed size records ending where the string table begins.
type SymView struct {
	f   *File
	off int
	n   int
}

// Symbols returns a view over the COFF symbol table. Images without a
// symbol table yield an empty view.
func (f *File) Symbols() (*SymView, error) {
	if f.FileHeader.PointerToSymbolTable == 0 || f.FileHeader.NumberOfSymbols == 0 {
		return &SymView{f: f}, nil
	}
	off := int(f.FileHeader.PointerToSymbolTable)
	n := int(f.FileHeader.NumberOfSymbols)
	if off < 0 || off+n*symbolRecordSize > len(f.data) {
		return nil, &FormatError{off, "symbol table outside file"}
	}
	return &SymView{f: f, off: off, n: n}, nil
}

// Len returns the number of records, aux records included.
func (v *SymView) Len() int {
	return v.n
}

// At returns the i-th symbol record.
func (v *SymView) At(i int) (SymbolRecord, error) {
	if i < 0 || i >= v.n {
		return SymbolRecord{}, &FormatError{v.off, "symbol index out of range"}
	}
	rec := v.f.data[v.off+i*symbolRecordSize:]
	r := SymbolRecord{
		Value:              binary.LittleEndian.Uint32(rec[8:]),
		SectionNumber:      int16(binary.LittleEndian.Uint16(rec[12:])),
		Type:               binary.LittleEndian.Uint16(rec[14:]),
		StorageClass:       rec[16],
		NumberOfAuxSymbols: rec[17],
	}
	if binary.LittleEndian.Uint32(rec) == 0 {
		// Long name: bytes 4-8 hold an offset into the string table.
		soff := int(binary.LittleEndian.Uint32(rec[4:]))
		if s, ok := v.f.cstring(v.strtab() + soff); ok {
			r.Name = s
		}
	} else {
		r.Name = string(bytes.TrimRight(rec[:8], "\x00"))
	}
	return r, nil
}

func (v *SymView) strtab() int {
	return v.f.strtab
}

// Begin returns a cursor positioned on the first record.
func (v *SymView) Begin() Cursor {
	return Cursor{v: v}
}

// End returns the one-past-the-last cursor.
func (v *SymView) End() Cursor {
	return Cursor{v: v, i: v.n}
}

// Cursor is a position within a SymView supporting offset arithmetic,
// which the resolvers need for indexed and relative traversal.
type Cursor struct {
	v *SymView
	i int
}

// Add returns the cursor advanced by n records (n may be negative).
func (c Cursor) Add(n int) Cursor {
	return Cursor{v: c.v, i: c.i + n}
}

// Sub returns the distance in records between two cursors of the same
// view.
func (c Cursor) Sub(o Cursor) int {
	return c.i - o.i
}

// Valid reports whether the cursor addresses a record.
func (c Cursor) Valid() bool {
	return c.v != nil && c.i >= 0 && c.i < c.v.n
}

// At returns the record under the cursor.
func (c Cursor) At() (SymbolRecord, error) {
	return c.v.At(c.i)
}

// Index returns the record n positions after the cursor.
func (c Cursor) Index(n int) (SymbolRecord, error) {
	return c.v.At(c.i + n)
}

// NextRecord returns the cursor advanced past the current record and
// its auxiliary records.
func (c Cursor) NextRecord() Cursor {
	rec, err := c.At()
	if err != nil {
		return c.Add(1)
	}
	return c.Add(1 + int(rec.NumberOfAuxSymbols))
}
