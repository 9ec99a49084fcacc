// Package gnu implements the GNU binutils/MinGW long-form import-library
// factory (spec.md §4.5): one jump-stub object per export, plus a head and
// a tail object that together form the DLL's `.idata` chain.
package gnu

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ZacharyZcR/implib/internal/arwriter"
	"github.com/ZacharyZcR/implib/internal/coffwriter"
	"github.com/ZacharyZcR/implib/internal/def"
	"github.com/ZacharyZcR/implib/internal/machine"
)

// jmpIX86Bytes is the x86/x64 jump-stub template: "jmp *0(%rip)" padded
// with two NOPs, relocated at offset 2.
var jmpIX86Bytes = []byte{0xff, 0x25, 0, 0, 0, 0, 0x90, 0x90}

// jmpARMBytes is the ARM/ARM64 jump-stub template: "ldr ip,[pc]" then
// "ldr pc,[ip]" then a 4-byte placeholder, relocated at offset 8.
var jmpARMBytes = []byte{
	0x00, 0xc0, 0x9f, 0xe5,
	0x00, 0xf0, 0x9c, 0xe5,
	0, 0, 0, 0,
}

const idataRWCharacteristics = coffwriter.SectionAlign4Bytes | coffwriter.SectionMemRead | coffwriter.SectionMemWrite
const idataRWInitCharacteristics = idataRWCharacteristics | coffwriter.SectionCntInitializedData

// BuildMembers emits the full deterministic sequence of archive members
// for d's exports, targeting machine m: the head member, then every
// export's jump stub in export order, then the tail member — head
// precedes the stubs, tail follows them (spec.md §4.5).
func BuildMembers(d *def.ModuleDef, m machine.Type) ([]arwriter.Member, error) {
	if err := validateNames(d); err != nil {
		return nil, err
	}

	mangled := mangle(d.ImportName)

	var members []arwriter.Member

	head, err := buildHead(mangled, m)
	if err != nil {
		return nil, fmt.Errorf("gnu: head object: %w", err)
	}
	members = append(members, head)

	seq := 0
	for i := range d.Exports {
		exp := &d.Exports[i]
		if exp.Private {
			continue
		}
		stub, err := buildStub(exp, mangled, seq, m)
		if err != nil {
			return nil, fmt.Errorf("gnu: stub for %q: %w", exp.Name, err)
		}
		members = append(members, stub)
		seq++
	}

	tail, err := buildTail(mangled, d.ImportName, m)
	if err != nil {
		return nil, fmt.Errorf("gnu: tail object: %w", err)
	}
	members = append(members, tail)

	return members, nil
}

func validateNames(d *def.ModuleDef) error {
	if strings.ContainsRune(d.ImportName, 0) {
		return fmt.Errorf("gnu: import name contains a NUL byte")
	}
	for i := range d.Exports {
		if strings.ContainsRune(d.Exports[i].Name, 0) {
			return fmt.Errorf("gnu: export name %q contains a NUL byte", d.Exports[i].Name)
		}
	}
	return nil
}

// mangle replaces every '.' with '_', matching the upstream factory's
// filename/symbol mangling rule (spec.md §4.5).
func mangle(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}

func jumpStub(m machine.Type) (data []byte, relOffset int, err error) {
	switch m {
	case machine.I386, machine.AMD64:
		out := make([]byte, len(jmpIX86Bytes))
		copy(out, jmpIX86Bytes)
		return out, 2, nil
	case machine.ARMNT, machine.ARM64:
		out := make([]byte, len(jmpARMBytes))
		copy(out, jmpARMBytes)
		return out, 8, nil
	default:
		return nil, 0, fmt.Errorf("gnu: unsupported machine type %v", m)
	}
}

func emptyCodeDataBSS() []coffwriter.Section {
	return []coffwriter.Section{
		{Name: ".text", Characteristics: coffwriter.SectionAlign16Bytes | coffwriter.SectionCntCode | coffwriter.SectionMemExecute | coffwriter.SectionMemRead},
		{Name: ".data", Characteristics: coffwriter.SectionAlign16Bytes | coffwriter.SectionCntInitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite},
		{Name: ".bss", Characteristics: coffwriter.SectionAlign16Bytes | coffwriter.SectionCntUninitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite},
	}
}

func buildStub(exp *def.ShortExport, mangledImport string, seq int, m machine.Type) (arwriter.Member, error) {
	imgRel, err := m.ImageRelRelocation()
	if err != nil {
		return arwriter.Member{}, err
	}

	headSymName := "_head_" + mangledImport
	impSymName := "__imp_" + exp.Name

	sections := []coffwriter.Section{
		{Name: ".text", Characteristics: coffwriter.SectionAlign4Bytes | coffwriter.SectionCntCode | coffwriter.SectionMemExecute | coffwriter.SectionMemRead},
		{Name: ".data", Characteristics: coffwriter.SectionAlign4Bytes | coffwriter.SectionCntInitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite},
		{Name: ".bss", Characteristics: coffwriter.SectionAlign4Bytes | coffwriter.SectionCntUninitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite},
		{Name: ".idata$7", Characteristics: idataRWCharacteristics},
		{Name: ".idata$5", Characteristics: idataRWCharacteristics},
		{Name: ".idata$4", Characteristics: idataRWCharacteristics},
	}
	const (
		secText = 1
		secIdata7 = 4
		secIdata5 = 5
		secIdata4 = 6
	)

	if !exp.Data {
		stubBytes, relOff, err := jumpStub(m)
		if err != nil {
			return arwriter.Member{}, err
		}
		rel32, err := m.Rel32Relocation()
		if err != nil {
			return arwriter.Member{}, err
		}
		sections[0].Data = stubBytes
		sections[0].Relocations = []coffwriter.SectionRelocation{
			{Offset: uint32(relOff), SymbolIndex: 2, Type: rel32}, // patched below once imp symbol index is known
		}
	}

	sections[secIdata7-1].Data = make([]byte, 4)
	sections[secIdata7-1].Relocations = []coffwriter.SectionRelocation{
		{Offset: 0, SymbolIndex: 0, Type: imgRel}, // head symbol, index 0
	}

	var idata56 []byte
	if exp.NoName {
		idata56 = []byte{byte(exp.Ordinal), byte(exp.Ordinal >> 8), 0, 0, 0, 0, 0, 0x80}
	} else {
		idata56 = make([]byte, 8)
	}
	sections[secIdata5-1].Data = idata56
	sections[secIdata4-1].Data = append([]byte(nil), idata56...)

	var symbols []coffwriter.SymbolSpec
	symbols = append(symbols, coffwriter.SymbolSpec{Name: headSymName, SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassExternal})

	exposed := []string{}
	if !exp.Data {
		symbols = append(symbols, coffwriter.SymbolSpec{Name: exp.Name, SectionNumber: secText, StorageClass: coffwriter.ClassExternal})
		exposed = append(exposed, exp.Name)
	}
	impIndex := uint32(len(symbols))
	symbols = append(symbols, coffwriter.SymbolSpec{Name: impSymName, SectionNumber: secIdata5, StorageClass: coffwriter.ClassExternal})
	exposed = append(exposed, impSymName)

	if !exp.Data {
		sections[0].Relocations[0].SymbolIndex = impIndex
	}

	// .idata$6 (the hint/name entry) is part of every stub's section set,
	// spec.md §4.5; for a NONAME export it stays empty and unreferenced —
	// only its data fill and the .idata$5/.idata$4 relocations are skipped.
	idata6 := coffwriter.Section{Name: ".idata$6", Characteristics: coffwriter.SectionAlign2Bytes | coffwriter.SectionMemRead | coffwriter.SectionMemWrite}
	if !exp.NoName {
		idata6Data := make([]byte, 2)
		binary.LittleEndian.PutUint16(idata6Data, exp.Ordinal)
		name := exp.Name
		if m == machine.I386 {
			name = strings.TrimPrefix(name, "_")
		}
		idata6Data = append(idata6Data, []byte(name)...)
		idata6Data = append(idata6Data, 0)
		idata6.Data = idata6Data
	}
	sections = append(sections, idata6)
	secIdata6 := len(sections)
	idata6SymIndex := uint32(len(symbols))
	symbols = append(symbols, coffwriter.SymbolSpec{Name: ".idata$6", SectionNumber: int16(secIdata6), StorageClass: coffwriter.ClassSection})

	if !exp.NoName {
		sections[secIdata5-1].Relocations = []coffwriter.SectionRelocation{{Offset: 0, SymbolIndex: idata6SymIndex, Type: imgRel}}
		sections[secIdata4-1].Relocations = []coffwriter.SectionRelocation{{Offset: 0, SymbolIndex: idata6SymIndex, Type: imgRel}}
	}

	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return arwriter.Member{}, err
	}
	name := fmt.Sprintf("%s_s%05d.o", mangledImport, seq)
	return arwriter.Member{Name: name, Data: data, Symbols: exposed}, nil
}

func buildHead(mangledImport string, m machine.Type) (arwriter.Member, error) {
	imgRel, err := m.ImageRelRelocation()
	if err != nil {
		return arwriter.Member{}, err
	}

	headSymName := "_head_" + mangledImport
	inameSymName := mangledImport + "_iname"

	sections := emptyCodeDataBSS()
	sections = append(sections,
		coffwriter.Section{Name: ".idata$2", Characteristics: idataRWInitCharacteristics, Data: make([]byte, coffwriter.ImportDescriptorSize)},
		coffwriter.Section{Name: ".idata$5", Characteristics: idataRWInitCharacteristics},
		coffwriter.Section{Name: ".idata$4", Characteristics: idataRWInitCharacteristics},
	)
	const (
		secIdata2 = 4
		secIdata5 = 5
		secIdata4 = 6
	)

	symbols := []coffwriter.SymbolSpec{
		{Name: headSymName, SectionNumber: secIdata2, StorageClass: coffwriter.ClassExternal},
		{Name: ".idata$4", SectionNumber: secIdata4, StorageClass: coffwriter.ClassSection},
		{Name: ".idata$5", SectionNumber: secIdata5, StorageClass: coffwriter.ClassSection},
		{Name: inameSymName, SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassExternal},
	}

	sections[secIdata2-1].Relocations = []coffwriter.SectionRelocation{
		{Offset: 0, SymbolIndex: 1, Type: imgRel},  // OriginalFirstThunk -> .idata$4
		{Offset: 16, SymbolIndex: 2, Type: imgRel}, // FirstThunk -> .idata$5
		{Offset: 12, SymbolIndex: 3, Type: imgRel}, // Name -> <mangled>_iname
	}

	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return arwriter.Member{}, err
	}
	return arwriter.Member{Name: mangledImport + "_h.o", Data: data, Symbols: []string{headSymName}}, nil
}

func buildTail(mangledImport, importName string, m machine.Type) (arwriter.Member, error) {
	inameSymName := mangledImport + "_iname"

	sections := emptyCodeDataBSS()
	sections = append(sections,
		coffwriter.Section{Name: ".idata$4", Characteristics: idataRWInitCharacteristics, Data: make([]byte, 8)},
		coffwriter.Section{Name: ".idata$5", Characteristics: idataRWInitCharacteristics, Data: make([]byte, 8)},
		coffwriter.Section{Name: ".idata$7", Characteristics: idataRWInitCharacteristics, Data: append([]byte(importName), 0)},
	)
	const secIdata7 = 6

	symbols := []coffwriter.SymbolSpec{
		{Name: inameSymName, SectionNumber: secIdata7, StorageClass: coffwriter.ClassExternal},
	}

	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return arwriter.Member{}, err
	}
	return arwriter.Member{Name: mangledImport + "_t.o", Data: data, Symbols: []string{inameSymName}}, nil
}

func fileCharacteristics(m machine.Type) uint16 {
	if m.Is32Bit() {
		return coffwriter.File32BitMachine
	}
	return 0
}
