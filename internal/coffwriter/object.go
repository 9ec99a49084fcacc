package coffwriter

import (
	"bytes"

	"github.com/ZacharyZcR/implib/internal/machine"
)

// Section describes one section of a COFF object to be assembled by
// BuildObject: its raw content and the relocations that apply to it.
type Section struct {
	Name            string
	Characteristics uint32
	Data            []byte
	Relocations     []SectionRelocation
}

// SectionRelocation is a relocation record expressed relative to its
// owning section, referencing a symbol by its final table index (see
// SymbolIndices).
type SectionRelocation struct {
	Offset      uint32
	SymbolIndex uint32
	Type        uint16
}

// SymbolSpec is a symbol-table entry to be assembled by BuildObject. Aux,
// when non-empty, must be exactly one 18-byte auxiliary record (the only
// shape this module ever emits — weak-external aliasing); it occupies its
// own symbol-table slot, shifting the indices of every following symbol.
type SymbolSpec struct {
	Name          string
	Value         uint32
	SectionNumber int16
	Type          uint16
	StorageClass  uint8
	Aux           []byte
}

// SymbolIndices returns, for each entry of symbols, the index its primary
// record will occupy in the assembled symbol table. Relocations must be
// built against these indices, not against the symbols' position in the
// slice, since a symbol with an auxiliary record consumes two slots.
func SymbolIndices(symbols []SymbolSpec) []uint32 {
	indices := make([]uint32, len(symbols))
	next := uint32(0)
	for i, s := range symbols {
		indices[i] = next
		next++
		if len(s.Aux) > 0 {
			next++
		}
	}
	return indices
}

// BuildObject assembles a complete COFF object file: file header, section
// headers, section data (4-byte aligned), per-section relocations, the
// symbol table (with inline auxiliary records), and the trailing string
// table. Data, relocations, and symbols must already reference each other
// by their final positions (section order, SymbolIndices).
func BuildObject(m machine.Type, characteristics uint16, sections []Section, symbols []SymbolSpec) ([]byte, error) {
	headersEnd := FileHeaderSize + len(sections)*SectionHeaderSize

	type laidOutSection struct {
		header   SectionHeader
		data     []byte
		relocs   []Relocation
	}
	laid := make([]laidOutSection, len(sections))

	offset := headersEnd
	for i, sec := range sections {
		var ptrRaw uint32
		if len(sec.Data) > 0 {
			offset = AlignUp(offset, 4)
			ptrRaw = uint32(offset)
			offset += len(sec.Data)
		}
		laid[i].header = SectionHeader{
			Name:            SectionName(sec.Name),
			VirtualSize:     0,
			VirtualAddress:  0,
			SizeOfRawData:   uint32(len(sec.Data)),
			PointerToRawData: ptrRaw,
			Characteristics: sec.Characteristics,
		}
		laid[i].data = sec.Data
	}

	for i, sec := range sections {
		if len(sec.Relocations) == 0 {
			continue
		}
		laid[i].header.PointerToRelocations = uint32(offset)
		laid[i].header.NumberOfRelocations = uint16(len(sec.Relocations))
		relocs := make([]Relocation, len(sec.Relocations))
		for j, r := range sec.Relocations {
			relocs[j] = Relocation{
				VirtualAddress:   r.Offset,
				SymbolTableIndex: r.SymbolIndex,
				Type:             r.Type,
			}
		}
		laid[i].relocs = relocs
		offset += len(sec.Relocations) * RelocationSize
	}

	symbolTableStart := offset
	var strings StringTable
	var symbolBuf bytes.Buffer
	totalSlots := uint32(0)
	for _, s := range symbols {
		sym := Symbol{
			Name:               ShortOrOffsetName(s.Name, &strings),
			Value:              s.Value,
			SectionNumber:      s.SectionNumber,
			Type:               s.Type,
			StorageClass:       s.StorageClass,
			NumberOfAuxSymbols: uint8(len(s.Aux) / SymbolSize),
		}
		if err := Write(&symbolBuf, sym); err != nil {
			return nil, err
		}
		symbolBuf.Write(s.Aux)
		totalSlots++
		if len(s.Aux) > 0 {
			totalSlots += uint32(len(s.Aux) / SymbolSize)
		}
	}

	var out bytes.Buffer
	fh := FileHeader{
		Machine:              uint16(m),
		NumberOfSections:     uint16(len(sections)),
		TimeDateStamp:        0,
		PointerToSymbolTable: uint32(symbolTableStart),
		NumberOfSymbols:      totalSlots,
		SizeOfOptionalHeader: 0,
		Characteristics:      characteristics,
	}
	if err := Write(&out, fh); err != nil {
		return nil, err
	}
	for _, s := range laid {
		if err := Write(&out, s.header); err != nil {
			return nil, err
		}
	}
	for _, s := range laid {
		if len(s.data) == 0 {
			continue
		}
		for out.Len() < int(s.header.PointerToRawData) {
			out.WriteByte(0)
		}
		out.Write(s.data)
	}
	for _, s := range laid {
		for _, r := range s.relocs {
			if err := Write(&out, r); err != nil {
				return nil, err
			}
		}
	}
	out.Write(symbolBuf.Bytes())
	out.Write(strings.Bytes())

	return out.Bytes(), nil
}
