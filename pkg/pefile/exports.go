package pefile

// Export is one entry of the image export directory.
type Export struct {
	// Ordinal is the export ordinal, biased by the directory's
	// ordinal base.
	Ordinal uint32
	// RVA is the address of the exported code or data.
	RVA uint32
	// Name is the exported name, empty for exports by ordinal only.
	Name string
}

// ExportView iterates the export directory of an image. The export
// address table and the name tables are parallel arrays that are not
// 1:1: only some exports carry a name.
type ExportView struct {
	f        *File
	ordBase  uint32
	funcsOff int
	nfuncs   int
	namesOff int
	strip    bool

	// nameIndex maps an unbiased export index to the slot of its name
	// in the name pointer table.
	nameIndex map[int]int
}

// Exports returns a view over the export directory. An image without
// an export directory yields an empty view, a malformed one an error.
func (f *File) Exports() (*ExportView, error) {
	v := &ExportView{f: f, strip: f.gnuMangled(), nameIndex: map[int]int{}}
	if len(f.Opt.DataDirectory) <= dirExport {
		return v, nil
	}
	dir := f.Opt.DataDirectory[dirExport]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return v, nil
	}
	off, ok := f.rvaToOff(dir.VirtualAddress)
	if !ok || off+40 > len(f.data) {
		return nil, &FormatError{int(dir.VirtualAddress), "export directory outside mapped sections"}
	}

	ordBase, _ := f.u32(off + 16)
	nfuncs, _ := f.u32(off + 20)
	nnames, _ := f.u32(off + 24)
	funcsRVA, _ := f.u32(off + 28)
	namesRVA, _ := f.u32(off + 32)
	ordsRVA, _ := f.u32(off + 36)

	v.ordBase = ordBase
	v.nfuncs = int(nfuncs)
	if v.nfuncs == 0 {
		return v, nil
	}

	funcsOff, ok := f.rvaToOff(funcsRVA)
	if !ok || funcsOff+4*v.nfuncs > len(f.data) {
		return nil, &FormatError{int(funcsRVA), "export address table outside file"}
	}
	v.funcsOff = funcsOff

	if nnames == 0 {
		return v, nil
	}
	namesOff, ok1 := f.rvaToOff(namesRVA)
	ordsOff, ok2 := f.rvaToOff(ordsRVA)
	if !ok1 || !ok2 || namesOff+4*int(nnames) > len(f.data) || ordsOff+2*int(nnames) > len(f.data) {
		return nil, &FormatError{int(namesRVA), "export name tables outside file"}
	}
	v.namesOff = namesOff
	for j := 0; j < int(nnames); j++ {
		ord, _ := f.u16(ordsOff + 2*j)
		v.nameIndex[int(ord)] = j
	}
	return v, nil
}

// Count returns the number of entries in the export address table,
// including unnamed exports.
func (v *ExportView) Count() int {
	return v.nfuncs
}

// At returns the i-th export.
func (v *ExportView) At(i int) (Export, error) {
	if i < 0 || i >= v.nfuncs {
		return Export{}, &FormatError{0, "export index out of range"}
	}
	rva, _ := v.f.u32(v.funcsOff + 4*i)
	e := Export{Ordinal: v.ordBase + uint32(i), RVA: rva}
	if j, ok := v.nameIndex[i]; ok {
		nameRVA, _ := v.f.u32(v.namesOff + 4*j)
		if noff, ok := v.f.rvaToOff(nameRVA); ok {
			if s, ok := v.f.cstring(noff); ok {
				if v.strip && len(s) > 0 && s[0] == '_' {
					s = s[1:]
				}
				e.Name = s
			}
		}
	}
	return e, nil
}

// gnuMangled reports whether export names in this image follow the GNU
// toolchain convention of one extra leading underscore. MSVC images
// record a nonzero image version or a modern linker version in the
// optional header; MinGW images leave the image version zeroed and
// report an old linker. Getting this wrong corrupts every name
// resolved from the module, so the rule is deliberately conservative.
func (f *File) gnuMangled() bool {
	if f.Opt.MajorImageVersion != 0 || f.Opt.MinorImageVersion != 0 {
		return false
	}
	return f.Opt.MajorLinkerVersion < 6
}
