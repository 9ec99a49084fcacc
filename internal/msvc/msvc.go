// Package msvc implements the MSVC short-import object factory (spec.md
// §4.4): for each DLL it emits an import-descriptor object, a
// null-descriptor and null-thunk terminator pair, and one short-import
// record (plus, for weakly-aliased exports, a pair of weak-external
// objects) per export.
package msvc

import (
	"bytes"
	"fmt"

	"github.com/ZacharyZcR/implib/internal/arwriter"
	"github.com/ZacharyZcR/implib/internal/coffwriter"
	"github.com/ZacharyZcR/implib/internal/def"
	"github.com/ZacharyZcR/implib/internal/machine"
)

// BuildMembers emits the full deterministic sequence of archive members
// for d's exports, targeting machine m.
func BuildMembers(d *def.ModuleDef, m machine.Type) ([]arwriter.Member, error) {
	if bytes.IndexByte([]byte(d.ImportName), 0) >= 0 {
		return nil, fmt.Errorf("msvc: import name contains a NUL byte")
	}
	for i := range d.Exports {
		if bytes.IndexByte([]byte(d.Exports[i].Name), 0) >= 0 {
			return nil, fmt.Errorf("msvc: export name %q contains a NUL byte", d.Exports[i].Name)
		}
	}

	lib := libraryName(d.ImportName)

	var members []arwriter.Member

	idData, idSyms, err := importDescriptorObject(lib, d.ImportName, m)
	if err != nil {
		return nil, fmt.Errorf("msvc: import descriptor: %w", err)
	}
	members = append(members, arwriter.Member{Name: d.ImportName, Data: idData, Symbols: idSyms})

	nullDescData, nullDescSyms, err := nullImportDescriptorObject(m)
	if err != nil {
		return nil, fmt.Errorf("msvc: null import descriptor: %w", err)
	}
	members = append(members, arwriter.Member{Name: d.ImportName, Data: nullDescData, Symbols: nullDescSyms})

	nullThunkData, nullThunkSyms, err := nullThunkObject(lib, m)
	if err != nil {
		return nil, fmt.Errorf("msvc: null thunk: %w", err)
	}
	members = append(members, arwriter.Member{Name: d.ImportName, Data: nullThunkData, Symbols: nullThunkSyms})

	for i := range d.Exports {
		exp := &d.Exports[i]
		if exp.Private {
			continue
		}

		if exp.AliasTarget != "" && exp.AliasTarget != exp.Name {
			falseData, err := weakExternalObject(exp, false, m)
			if err != nil {
				return nil, fmt.Errorf("msvc: weak external for %q: %w", exp.Name, err)
			}
			members = append(members, arwriter.Member{Name: d.ImportName, Data: falseData})

			trueData, err := weakExternalObject(exp, true, m)
			if err != nil {
				return nil, fmt.Errorf("msvc: weak external (imp) for %q: %w", exp.Name, err)
			}
			members = append(members, arwriter.Member{Name: d.ImportName, Data: trueData})
		}

		shortData, shortSyms := shortImportMember(exp, d.ImportName, m)
		members = append(members, arwriter.Member{Name: d.ImportName, Data: shortData, Symbols: shortSyms})
	}

	return members, nil
}

// libraryName strips import_name's trailing 4-character extension (".dll",
// spec.md §4.4), e.g. "python39.dll" -> "python39".
func libraryName(importName string) string {
	if len(importName) >= 4 {
		return importName[:len(importName)-4]
	}
	return importName
}

func fileCharacteristics(m machine.Type) uint16 {
	if m.Is32Bit() {
		return coffwriter.File32BitMachine
	}
	return 0
}

const idataCharacteristics = coffwriter.SectionAlign4Bytes | coffwriter.SectionCntInitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite

func importDescriptorObject(lib, importName string, m machine.Type) ([]byte, []string, error) {
	imgRel, err := m.ImageRelRelocation()
	if err != nil {
		return nil, nil, err
	}

	var descriptorBuf bytes.Buffer
	if err := coffwriter.Write(&descriptorBuf, coffwriter.ImportDescriptor{}); err != nil {
		return nil, nil, err
	}

	idata6 := append([]byte(importName), 0)

	sections := []coffwriter.Section{
		{
			Name:            ".idata$2",
			Characteristics: idataCharacteristics,
			Data:            descriptorBuf.Bytes(),
			Relocations: []coffwriter.SectionRelocation{
				{Offset: 12, SymbolIndex: 2, Type: imgRel}, // Name
				{Offset: 0, SymbolIndex: 3, Type: imgRel},  // OriginalFirstThunk
				{Offset: 16, SymbolIndex: 4, Type: imgRel}, // FirstThunk
			},
		},
		{
			Name:            ".idata$6",
			Characteristics: coffwriter.SectionAlign2Bytes | coffwriter.SectionCntInitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite,
			Data:            idata6,
		},
	}

	symbols := []coffwriter.SymbolSpec{
		{Name: "__IMPORT_DESCRIPTOR_" + lib, SectionNumber: 1, StorageClass: coffwriter.ClassExternal},
		{Name: ".idata$2", SectionNumber: 1, StorageClass: coffwriter.ClassSection},
		{Name: ".idata$6", SectionNumber: 2, StorageClass: coffwriter.ClassSection},
		{Name: ".idata$4", SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassSection},
		{Name: ".idata$5", SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassSection},
		{Name: "__NULL_IMPORT_DESCRIPTOR", SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassExternal},
		{Name: "\x7f" + lib + "_NULL_THUNK_DATA", SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassExternal},
	}

	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return nil, nil, err
	}
	return data, []string{"__IMPORT_DESCRIPTOR_" + lib}, nil
}

func nullImportDescriptorObject(m machine.Type) ([]byte, []string, error) {
	sections := []coffwriter.Section{
		{Name: ".idata$3", Characteristics: idataCharacteristics, Data: make([]byte, coffwriter.ImportDescriptorSize)},
	}
	symbols := []coffwriter.SymbolSpec{
		{Name: "__NULL_IMPORT_DESCRIPTOR", SectionNumber: 1, StorageClass: coffwriter.ClassExternal},
	}
	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return nil, nil, err
	}
	return data, []string{"__NULL_IMPORT_DESCRIPTOR"}, nil
}

func nullThunkObject(lib string, m machine.Type) ([]byte, []string, error) {
	ptrSize := m.PointerSize()
	align := uint32(coffwriter.SectionAlign4Bytes)
	if ptrSize == 8 {
		align = coffwriter.SectionAlign8Bytes
	}
	characteristics := align | coffwriter.SectionCntInitializedData | coffwriter.SectionMemRead | coffwriter.SectionMemWrite

	sections := []coffwriter.Section{
		{Name: ".idata$5", Characteristics: characteristics, Data: make([]byte, ptrSize)},
		{Name: ".idata$4", Characteristics: characteristics, Data: make([]byte, ptrSize)},
	}
	name := "\x7f" + lib + "_NULL_THUNK_DATA"
	symbols := []coffwriter.SymbolSpec{
		{Name: name, SectionNumber: 1, StorageClass: coffwriter.ClassExternal},
	}
	data, err := coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
	if err != nil {
		return nil, nil, err
	}
	return data, []string{name}, nil
}

func shortImportMember(exp *def.ShortExport, importName string, m machine.Type) ([]byte, []string) {
	sym := exp.Name
	if exp.SymbolName != "" {
		sym = exp.SymbolName
	}
	nameType := exp.ImportNameType(m)
	importType := exp.ImportType()

	header := coffwriter.ImportObjectHeader{
		Sig1:          0,
		Sig2:          0xffff,
		Version:       0,
		Machine:       uint16(m),
		TimeDateStamp: 0,
		SizeOfData:    uint32(len(sym) + len(importName) + 2),
		OrdinalOrHint: exp.Ordinal,
		NameType:      (uint16(nameType) << 2) | uint16(importType),
	}

	var out bytes.Buffer
	_ = coffwriter.Write(&out, header)
	out.WriteString(sym)
	out.WriteByte(0)
	out.WriteString(importName)
	out.WriteByte(0)

	symbols := []string{"__imp_" + sym}
	if importType != def.ImportData {
		symbols = append(symbols, sym)
	}
	return out.Bytes(), symbols
}

func weakExternalObject(exp *def.ShortExport, imp bool, m machine.Type) ([]byte, error) {
	sym := exp.Name
	weak := exp.AliasTarget
	if imp {
		sym = "__imp_" + sym
		weak = "__imp_" + weak
	}

	sections := []coffwriter.Section{
		{Name: ".drectve", Characteristics: coffwriter.SectionLNKInfo | coffwriter.SectionLNKRemove},
	}

	weakTagIndex := 2 // index of the "real" external symbol below
	aux := make([]byte, coffwriter.SymbolSize)
	putUint32LE(aux[0:4], uint32(weakTagIndex))
	putUint32LE(aux[4:8], coffwriter.WeakExternSearchAlias)

	symbols := []coffwriter.SymbolSpec{
		{Name: "@comp.id", SectionNumber: coffwriter.SectionNumberAbsolute, StorageClass: coffwriter.ClassStatic},
		{Name: "@feat.00", SectionNumber: coffwriter.SectionNumberAbsolute, StorageClass: coffwriter.ClassStatic},
		{Name: sym, SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassExternal},
		{Name: weak, SectionNumber: coffwriter.SectionNumberUndefined, StorageClass: coffwriter.ClassWeakExternal, Aux: aux},
	}

	return coffwriter.BuildObject(m, fileCharacteristics(m), sections, symbols)
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
