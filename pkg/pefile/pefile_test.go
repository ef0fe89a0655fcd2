package pefile

import (
	"testing"

	"github.com/go-pstack/pstack/pkg/pefile/pefiletest"
)

func TestParseHeaders(t *testing.T) {
	b := pefiletest.New()
	b.ImageBase = 0x180000000
	f, err := New(b.Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	if f.FileHeader.Machine != 0x8664 {
		t.Errorf("machine = %#x, want 0x8664", f.FileHeader.Machine)
	}
	if f.ImageBase() != 0x180000000 {
		t.Errorf("image base = %#x, want 0x180000000", f.ImageBase())
	}
	if len(f.Sections) != 1 || f.Sections[0].Name != ".text" {
		t.Errorf("sections = %+v, want one .text section", f.Sections)
	}
	if f.Opt.Magic != 0x20b {
		t.Errorf("optional header magic = %#x, want 0x20b", f.Opt.Magic)
	}
	if len(f.Opt.DataDirectory) != 16 {
		t.Errorf("got %d data directories, want 16", len(f.Opt.DataDirectory))
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		make([]byte, 16),
		make([]byte, 4096),
	}
	for i, data := range cases {
		if _, err := New(data); err == nil {
			t.Errorf("case %d: garbage accepted", i)
		}
	}

	// A valid DOS header pointing past the end of the file.
	data := make([]byte, 0x40)
	data[0] = 'M'
	data[1] = 'Z'
	data[0x3c] = 0xff
	if _, err := New(data); err == nil {
		t.Errorf("out of range e_lfanew accepted")
	}
}

func TestRVATranslation(t *testing.T) {
	f, err := New(pefiletest.New().AddExport("Probe", 0x1234).Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer f.Close()

	// Section start maps to its raw pointer.
	off, ok := f.rvaToOff(0x1000)
	if !ok || off != 0x200 {
		t.Errorf("rvaToOff(0x1000) = %#x,%v, want 0x200,true", off, ok)
	}
	// Header region maps 1:1.
	off, ok = f.rvaToOff(0x40)
	if !ok || off != 0x40 {
		t.Errorf("rvaToOff(0x40) = %#x,%v, want 0x40,true", off, ok)
	}
	// Past everything.
	if _, ok = f.rvaToOff(0x100000); ok {
		t.Errorf("unmapped rva translated")
	}
}

func TestUseAfterClose(t *testing.T) {
	f, err := New(pefiletest.New().Build())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
