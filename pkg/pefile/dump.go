package pefile

import (
	"fmt"
	"io"
)

var machineNames = map[uint16]string{
	0x014c: "i386",
	0x8664: "x86-64",
	0xaa64: "arm64",
	0x01c4: "armnt",
}

// DumpInfo writes a diagnostic description of the image headers,
// sections, export directory and symbol table to w.
func (f *File) DumpInfo(w io.Writer) error {
	machine := machineNames[f.FileHeader.Machine]
	if machine == "" {
		machine = fmt.Sprintf("%#x", f.FileHeader.Machine)
	}
	fmt.Fprintf(w, "machine:        %s\n", machine)
	fmt.Fprintf(w, "image base:     %#x\n", f.Opt.ImageBase)
	fmt.Fprintf(w, "entry point:    %#x\n", f.Opt.AddressOfEntryPoint)
	fmt.Fprintf(w, "linker version: %d.%d\n", f.Opt.MajorLinkerVersion, f.Opt.MinorLinkerVersion)
	fmt.Fprintf(w, "image version:  %d.%d\n", f.Opt.MajorImageVersion, f.Opt.MinorImageVersion)

	fmt.Fprintf(w, "sections:\n")
	for i := range f.Sections {
		s := &f.Sections[i]
		fmt.Fprintf(w, "  %-8s rva=%#x size=%#x raw=%#x\n", s.Name, s.VirtualAddress, s.VirtualSize, s.PointerToRawData)
	}

	ev, err := f.Exports()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "exports: %d\n", ev.Count())
	for i := 0; i < ev.Count(); i++ {
		e, err := ev.At(i)
		if err != nil {
			return err
		}
		name := e.Name
		if name == "" {
			name = "(by ordinal)"
		}
		fmt.Fprintf(w, "  #%-5d rva=%#-10x %s\n", e.Ordinal, e.RVA, name)
	}

	sv, err := f.Symbols()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "coff symbols: %d\n", sv.Len())
	for c := sv.Begin(); c.Valid(); c = c.NextRecord() {
		rec, err := c.At()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  sec=%-3d value=%#-10x class=%-3d %s\n", rec.SectionNumber, rec.Value, rec.StorageClass, rec.Name)
	}
	return nil
}
