// Package pefiletest builds small synthetic PE32+ images in memory so
// the parsing and resolution code can be tested against byte-exact
// inputs instead of real binaries.
package pefiletest

import (
	"bytes"
	"encoding/binary"
)

const (
	sectionRVA = 0x1000
	sectionRaw = 0x200
)

type export struct {
	name string
	rva  uint32
}

type symbol struct {
	name  string
	value uint32
	class uint8
	naux  int
}

// Builder accumulates the contents of a synthetic image. The zero
// value is not usable, call New.
type Builder struct {
	Machine            uint16
	ImageBase          uint64
	MajorLinkerVersion uint8
	MinorLinkerVersion uint8
	MajorImageVersion  uint16
	MinorImageVersion  uint16
	OrdinalBase        uint32

	exports []export
	symbols []symbol
}

// New returns a builder with MSVC-like defaults: a modern linker
// version and a nonzero image version.
func New() *Builder {
	return &Builder{
		Machine:            0x8664,
		ImageBase:          0x140000000,
		MajorLinkerVersion: 14,
		MajorImageVersion:  6,
		OrdinalBase:        1,
	}
}

// MinGW gives the builder the header profile of an old GNU toolchain:
// zero image version and a pre-6 linker.
func (b *Builder) MinGW() *Builder {
	b.MajorLinkerVersion = 2
	b.MinorLinkerVersion = 56
	b.MajorImageVersion = 0
	b.MinorImageVersion = 0
	return b
}

// AddExport appends an entry to the export address table. An empty
// name produces an export by ordinal only.
func (b *Builder) AddExport(name string, rva uint32) *Builder {
	b.exports = append(b.exports, export{name: name, rva: rva})
	return b
}

// AddSymbol appends a COFF symbol record in section 1.
func (b *Builder) AddSymbol(name string, value uint32, class uint8) *Builder {
	return b.AddSymbolAux(name, value, class, 0)
}

// AddSymbolAux appends a COFF symbol record followed by naux zeroed
// auxiliary records.
func (b *Builder) AddSymbolAux(name string, value uint32, class uint8, naux int) *Builder {
	b.symbols = append(b.symbols, symbol{name: name, value: value, class: class, naux: naux})
	return b
}

// Build serializes the image.
func (b *Builder) Build() []byte {
	section := b.buildExports()
	if rem := len(section) % 512; rem != 0 {
		section = append(section, make([]byte, 512-rem)...)
	}
	symtab, strtab, nsyms := b.buildSymtab()

	symtabOff := sectionRaw + len(section)

	image := make([]byte, sectionRaw)
	le := binary.LittleEndian

	// DOS header.
	le.PutUint16(image[0:], 0x5a4d)
	le.PutUint32(image[0x3c:], 0x40)

	// NT signature and file header.
	le.PutUint32(image[0x40:], 0x00004550)
	fh := image[0x44:]
	le.PutUint16(fh[0:], b.Machine)
	le.PutUint16(fh[2:], 1) // one section
	if nsyms > 0 {
		le.PutUint32(fh[8:], uint32(symtabOff))
		le.PutUint32(fh[12:], uint32(nsyms))
	}
	le.PutUint16(fh[16:], 240)
	le.PutUint16(fh[18:], 0x22)

	// PE32+ optional header with 16 data directories.
	oh := image[0x58:]
	le.PutUint16(oh[0:], 0x20b)
	oh[2] = b.MajorLinkerVersion
	oh[3] = b.MinorLinkerVersion
	le.PutUint32(oh[16:], sectionRVA)
	le.PutUint64(oh[24:], b.ImageBase)
	le.PutUint16(oh[44:], b.MajorImageVersion)
	le.PutUint16(oh[46:], b.MinorImageVersion)
	le.PutUint32(oh[56:], sectionRVA+uint32(len(section)))
	le.PutUint32(oh[108:], 16)
	if len(b.exports) > 0 {
		le.PutUint32(oh[112:], sectionRVA)
		le.PutUint32(oh[116:], uint32(len(section)))
	}

	// Section header.
	sh := image[0x58+240:]
	copy(sh[0:], ".text")
	le.PutUint32(sh[8:], uint32(len(section)))
	le.PutUint32(sh[12:], sectionRVA)
	le.PutUint32(sh[16:], uint32(len(section)))
	le.PutUint32(sh[20:], sectionRaw)
	le.PutUint32(sh[36:], 0x60000020)

	image = append(image, section...)
	image = append(image, symtab...)
	image = append(image, strtab...)
	return image
}

// buildExports lays out the export directory, the three parallel
// tables and the name strings, all relative to sectionRVA.
func (b *Builder) buildExports() []byte {
	if len(b.exports) == 0 {
		return make([]byte, 16)
	}
	named := 0
	for _, e := range b.exports {
		if e.name != "" {
			named++
		}
	}

	le := binary.LittleEndian
	dirLen := 40
	funcsOff := dirLen
	namesOff := funcsOff + 4*len(b.exports)
	ordsOff := namesOff + 4*named
	strsOff := ordsOff + 2*named

	blob := make([]byte, strsOff)
	le.PutUint32(blob[16:], b.OrdinalBase)
	le.PutUint32(blob[20:], uint32(len(b.exports)))
	le.PutUint32(blob[24:], uint32(named))
	le.PutUint32(blob[28:], sectionRVA+uint32(funcsOff))
	le.PutUint32(blob[32:], sectionRVA+uint32(namesOff))
	le.PutUint32(blob[36:], sectionRVA+uint32(ordsOff))

	strs := new(bytes.Buffer)
	j := 0
	for i, e := range b.exports {
		le.PutUint32(blob[funcsOff+4*i:], e.rva)
		if e.name == "" {
			continue
		}
		nameRVA := sectionRVA + uint32(strsOff+strs.Len())
		le.PutUint32(blob[namesOff+4*j:], nameRVA)
		le.PutUint16(blob[ordsOff+2*j:], uint16(i))
		strs.WriteString(e.name)
		strs.WriteByte(0)
		j++
	}
	return append(blob, strs.Bytes()...)
}

// buildSymtab lays out the COFF symbol table and its string table.
// Names longer than eight bytes go to the string table, as the format
// requires.
func (b *Builder) buildSymtab() (symtab, strtab []byte, nsyms int) {
	if len(b.symbols) == 0 {
		return nil, nil, 0
	}
	le := binary.LittleEndian
	strs := new(bytes.Buffer)
	strs.Write(make([]byte, 4)) // length prefix, patched below

	buf := new(bytes.Buffer)
	for _, s := range b.symbols {
		rec := make([]byte, 18)
		if len(s.name) <= 8 {
			copy(rec, s.name)
		} else {
			le.PutUint32(rec[4:], uint32(strs.Len()))
			strs.WriteString(s.name)
			strs.WriteByte(0)
		}
		le.PutUint32(rec[8:], s.value)
		le.PutUint16(rec[12:], 1) // section 1
		rec[16] = s.class
		rec[17] = byte(s.naux)
		buf.Write(rec)
		buf.Write(make([]byte, 18*s.naux))
		nsyms += 1 + s.naux
	}

	strtab = strs.Bytes()
	le.PutUint32(strtab, uint32(len(strtab)))
	return buf.Bytes(), strtab, nsyms
}
