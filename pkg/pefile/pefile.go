// Package pefile parses PE/COFF images directly, without loading them.
//
// A File wraps a read-only byte slice (a memory mapping on Windows)
// and exposes lazily materialized views of the export directory and of
// the COFF symbol table. Views borrow the File's data; they must not
// be used after the File is closed.
package pefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

const (
	dosMagic    = 0x5a4d
	ntSignature = 0x00004550

	optMagicPE32     = 0x10b
	optMagicPE32Plus = 0x20b

	fileHeaderSize    = 20
	sectionHeaderSize = 40
	symbolRecordSize  = 18

	dirExport = 0
)

// FormatError reports a structurally invalid image. Every header is
// validated before any offset derived from it is trusted.
type FormatError struct {
	Off int
	Msg string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("pefile: %s at offset %#x", e.Msg, e.Off)
}

// FileHeader mirrors IMAGE_FILE_HEADER.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// DataDirectory mirrors IMAGE_DATA_DIRECTORY.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// OptionalHeader holds the fields shared between the PE32 and PE32+
// optional header variants that this package consumes.
type OptionalHeader struct {
	Magic               uint16
	MajorLinkerVersion  uint8
	MinorLinkerVersion  uint8
	AddressOfEntryPoint uint32
	ImageBase           uint64
	MajorImageVersion   uint16
	MinorImageVersion   uint16
	SizeOfImage         uint32
	DataDirectory       []DataDirectory
}

// SectionHeader is the subset of IMAGE_SECTION_HEADER needed to map
// relative virtual addresses to file offsets.
type SectionHeader struct {
	Name             string
	VirtualSize      uint32
	VirtualAddress   uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
	Characteristics  uint32
}

// File is a parsed PE/COFF image over a read-only byte slice.
type File struct {
	data   []byte
	closer func() error

	FileHeader FileHeader
	Opt        OptionalHeader
	Sections   []SectionHeader

	strtab int // offset of the COFF string table, 0 if absent
}

// New parses an image already held in memory. The slice is borrowed,
// not copied.
func New(data []byte) (*File, error) {
	f := &File{data: data}
	if len(data) < 0x40 {
		return nil, &FormatError{0, "file too small for a DOS header"}
	}
	if binary.LittleEndian.Uint16(data) != dosMagic {
		return nil, &FormatError{0, "bad DOS header magic"}
	}
	lfanew := int(binary.LittleEndian.Uint32(data[0x3c:]))
	if lfanew < 0 || lfanew+4+fileHeaderSize > len(data) {
		return nil, &FormatError{0x3c, "NT header offset outside file"}
	}
	if binary.LittleEndian.Uint32(data[lfanew:]) != ntSignature {
		return nil, &FormatError{lfanew, "bad PE signature"}
	}

	fh := data[lfanew+4:]
	f.FileHeader = FileHeader{
		Machine:              binary.LittleEndian.Uint16(fh),
		NumberOfSections:     binary.LittleEndian.Uint16(fh[2:]),
		TimeDateStamp:        binary.LittleEndian.Uint32(fh[4:]),
		PointerToSymbolTable: binary.LittleEndian.Uint32(fh[8:]),
		NumberOfSymbols:      binary.LittleEndian.Uint32(fh[12:]),
		SizeOfOptionalHeader: binary.LittleEndian.Uint16(fh[16:]),
		Characteristics:      binary.LittleEndian.Uint16(fh[18:]),
	}

	optOff := lfanew + 4 + fileHeaderSize
	if err := f.parseOptionalHeader(optOff); err != nil {
		return nil, err
	}

	secOff := optOff + int(f.FileHeader.SizeOfOptionalHeader)
	nsec := int(f.FileHeader.NumberOfSections)
	if secOff+nsec*sectionHeaderSize > len(data) {
		return nil, &FormatError{secOff, "section table outside file"}
	}

	if f.FileHeader.PointerToSymbolTable != 0 && f.FileHeader.NumberOfSymbols != 0 {
		f.strtab = int(f.FileHeader.PointerToSymbolTable) + symbolRecordSize*int(f.FileHeader.NumberOfSymbols)
	}

	f.Sections = make([]SectionHeader, nsec)
	for i := 0; i < nsec; i++ {
		sh := data[secOff+i*sectionHeaderSize:]
		f.Sections[i] = SectionHeader{
			Name:             f.sectionName(sh[:8]),
			VirtualSize:      binary.LittleEndian.Uint32(sh[8:]),
			VirtualAddress:   binary.LittleEndian.Uint32(sh[12:]),
			SizeOfRawData:    binary.LittleEndian.Uint32(sh[16:]),
			PointerToRawData: binary.LittleEndian.Uint32(sh[20:]),
			Characteristics:  binary.LittleEndian.Uint32(sh[36:]),
		}
	}

	return f, nil
}

func (f *File) parseOptionalHeader(off int) error {
	size := int(f.FileHeader.SizeOfOptionalHeader)
	if size < 2 || off+size > len(f.data) {
		return &FormatError{off, "optional header outside file"}
	}
	oh := f.data[off : off+size]

	f.Opt.Magic = binary.LittleEndian.Uint16(oh)
	var dirOff int
	switch f.Opt.Magic {
	case optMagicPE32:
		if size < 96 {
			return &FormatError{off, "PE32 optional header truncated"}
		}
		f.Opt.ImageBase = uint64(binary.LittleEndian.Uint32(oh[28:]))
		dirOff = 96
	case optMagicPE32Plus:
		if size < 112 {
			return &FormatError{off, "PE32+ optional header truncated"}
		}
		f.Opt.ImageBase = binary.LittleEndian.Uint64(oh[24:])
		dirOff = 112
	default:
		return &FormatError{off, fmt.Sprintf("unrecognized optional header magic %#x", f.Opt.Magic)}
	}

	f.Opt.MajorLinkerVersion = oh[2]
	f.Opt.MinorLinkerVersion = oh[3]
	f.Opt.AddressOfEntryPoint = binary.LittleEndian.Uint32(oh[16:])
	f.Opt.MajorImageVersion = binary.LittleEndian.Uint16(oh[44:])
	f.Opt.MinorImageVersion = binary.LittleEndian.Uint16(oh[46:])
	f.Opt.SizeOfImage = binary.LittleEndian.Uint32(oh[56:])

	ndirs := int(binary.LittleEndian.Uint32(oh[dirOff-4:]))
	if max := (size - dirOff) / 8; ndirs > max {
		ndirs = max
	}
	f.Opt.DataDirectory = make([]DataDirectory, ndirs)
	for i := 0; i < ndirs; i++ {
		f.Opt.DataDirectory[i] = DataDirectory{
			VirtualAddress: binary.LittleEndian.Uint32(oh[dirOff+i*8:]),
			Size:           binary.LittleEndian.Uint32(oh[dirOff+i*8+4:]),
		}
	}
	return nil
}

func (f *File) sectionName(raw []byte) string {
	// Long section names are stored as "/offset" into the string table.
	if raw[0] == '/' && f.strtab != 0 {
		n, err := strconv.Atoi(string(bytes.TrimRight(raw[1:], "\x00")))
		if err == nil {
			if s, ok := f.cstring(f.strtab + n); ok {
				return s
			}
		}
	}
	return string(bytes.TrimRight(raw, "\x00"))
}

// ImageBase returns the preferred load address recorded in the header.
func (f *File) ImageBase() uint64 {
	return f.Opt.ImageBase
}

// Close releases the underlying mapping. Any views obtained from the
// File are invalid afterwards.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	c := f.closer
	f.closer = nil
	f.data = nil
	return c()
}

// rvaToOff translates a relative virtual address to a file offset
// through the section table.
func (f *File) rvaToOff(rva uint32) (int, bool) {
	for i := range f.Sections {
		s := &f.Sections[i]
		size := s.VirtualSize
		if size == 0 {
			size = s.SizeOfRawData
		}
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < size {
			off := int(s.PointerToRawData) + int(rva-s.VirtualAddress)
			if off >= len(f.data) {
				return 0, false
			}
			return off, true
		}
	}
	// The header region is mapped 1:1.
	if int(rva) < len(f.data) && (len(f.Sections) == 0 || rva < f.Sections[0].VirtualAddress) {
		return int(rva), true
	}
	return 0, false
}

func (f *File) u16(off int) (uint16, bool) {
	if off < 0 || off+2 > len(f.data) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(f.data[off:]), true
}

func (f *File) u32(off int) (uint32, bool) {
	if off < 0 || off+4 > len(f.data) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.data[off:]), true
}

func (f *File) cstring(off int) (string, bool) {
	if off < 0 || off >= len(f.data) {
		return "", false
	}
	end := bytes.IndexByte(f.data[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(f.data[off : off+end]), true
}
