// Package coffwriter holds typed little-endian record writers mirroring the
// PE/COFF structures used throughout the MSVC and GNU import-library
// factories: the file header, section headers, symbol records, relocation
// records, the import descriptor, and the short-import header (spec.md
// §4.3). Sizes are centralized here as named constants rather than
// recomputed at each call site (spec.md §9, Design Notes).
package coffwriter

import (
	"bytes"
	"encoding/binary"
)

// Fixed record sizes, in bytes, per the PE/COFF specification.
const (
	FileHeaderSize        = 20
	SectionHeaderSize      = 40
	SymbolSize             = 18
	RelocationSize         = 10
	ImportDescriptorSize   = 20
	ImportObjectHeaderSize = 20
)

// FileHeader is the COFF file header (IMAGE_FILE_HEADER).
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// Section characteristics bits used by the factories.
const (
	SectionLNKInfo             = 0x00000200
	SectionLNKRemove           = 0x00000800
	SectionAlign1Byte          = 0x00100000
	SectionAlign2Bytes         = 0x00200000
	SectionAlign4Bytes         = 0x00300000
	SectionAlign8Bytes         = 0x00400000
	SectionAlign16Bytes        = 0x00500000
	SectionCntCode             = 0x00000020
	SectionCntInitializedData  = 0x00000040
	SectionCntUninitializedData = 0x00000080
	SectionMemExecute          = 0x20000000
	SectionMemRead             = 0x40000000
	SectionMemWrite            = 0x80000000
)

// File header characteristics.
const (
	FileRelocsStripped = 0x0001
	File32BitMachine   = 0x0100
)

// SectionHeader is IMAGE_SECTION_HEADER.
type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// SectionName truncates/pads name to the 8-byte section-name field. COFF
// object section names are never long enough here to need the "/offset"
// string-table escape that PE images use for long section names.
func SectionName(name string) [8]byte {
	var out [8]byte
	copy(out[:], name)
	return out
}

// Symbol is the 18-byte COFF symbol table record (IMAGE_SYMBOL), with Name
// already resolved to either the inline 8-byte form or the
// zero/offset-into-string-table form (see ShortOrOffsetName).
type Symbol struct {
	Name               [8]byte
	Value              uint32
	SectionNumber      int16
	Type               uint16
	StorageClass       uint8
	NumberOfAuxSymbols uint8
}

// COFF storage classes used by the factories.
const (
	ClassExternal = 2
	ClassStatic   = 3
	ClassSection  = 3 // section symbols reuse IMAGE_SYM_CLASS_STATIC
	ClassWeakExternal = 105
)

// Symbol types.
const (
	SymTypeNull     = 0
	SymTypeFunction = 0x20
)

// Special section-number values for symbols not defined in a section.
const (
	SectionNumberUndefined = 0
	SectionNumberAbsolute  = -1
	SectionNumberDebug     = -2
)

// ShortOrOffsetName encodes a symbol name into the 8-byte Symbol.Name field:
// names of 8 bytes or fewer are stored inline; longer names are stored as
// four zero bytes followed by the 4-byte offset into the string table
// (after appending it with a StringTable).
func ShortOrOffsetName(name string, st *StringTable) [8]byte {
	var out [8]byte
	if len(name) <= 8 {
		copy(out[:], name)
		return out
	}
	offset := st.Add(name)
	binary.LittleEndian.PutUint32(out[4:8], offset)
	return out
}

// Relocation is IMAGE_RELOCATION.
type Relocation struct {
	VirtualAddress   uint32
	SymbolTableIndex uint32
	Type             uint16
}

// ImportDescriptor is IMAGE_IMPORT_DESCRIPTOR.
type ImportDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

// ImportObjectHeader is the short-import record header (IMPORT_OBJECT_HEADER).
type ImportObjectHeader struct {
	Sig1            uint16 // always 0
	Sig2            uint16 // always 0xffff
	Version         uint16
	Machine         uint16
	TimeDateStamp   uint32
	SizeOfData      uint32
	OrdinalOrHint   uint16
	NameType        uint16 // bits 0-1: import type, bits 2-3: name type
}

// Weak-external auxiliary symbol record search types.
const (
	WeakExternSearchAlias = 3
)

// Write appends the little-endian encoding of v (one of the record types
// above, or any other fixed-size struct of plain numeric fields/byte
// arrays) to buf.
func Write(buf *bytes.Buffer, v any) error {
	return binary.Write(buf, binary.LittleEndian, v)
}

// AlignUp rounds x up to the next multiple of align (align must be a power
// of two greater than zero).
func AlignUp(x, align int) int {
	return (x + align - 1) &^ (align - 1)
}
