package def

import (
	"strings"

	"github.com/ZacharyZcR/implib/internal/machine"
)

// ImportType classifies what an export resolves to: executable code, a
// data object, or a compile-time constant (spec.md §3).
type ImportType uint16

const (
	ImportCode ImportType = iota
	ImportData
	ImportConst
)

// ImportType derives the classification from the export's flags: data
// wins over constant wins over the code default (spec.md §3).
func (e *ShortExport) ImportType() ImportType {
	switch {
	case e.Data:
		return ImportData
	case e.Constant:
		return ImportConst
	default:
		return ImportCode
	}
}

// ImportNameType selects how the short-import record names the export
// (spec.md §3). The numeric values match the PE IMPORT_OBJECT_NAME_*
// constants, since the MSVC factory packs this directly into the
// name_type bitfield.
type ImportNameType uint16

const (
	NameTypeOrdinal    ImportNameType = iota // import by ordinal only
	NameTypeName                            // import name == public symbol name
	NameTypeNoPrefix                        // public symbol name minus leading ?/@/_
	NameTypeUndecorate                      // NoPrefix, truncated at the first @
)

// symbolForNameType returns the mangled object-file name used by the
// selection rule below, falling back to the effective external name when
// SymbolName was never set (the common case).
func (e *ShortExport) symbolForNameType() string {
	if e.SymbolName != "" {
		return e.SymbolName
	}
	return e.Name
}

// ImportNameType applies the deterministic selection rule from spec.md §3.
func (e *ShortExport) ImportNameType(m machine.Type) ImportNameType {
	if e.NoName {
		return NameTypeOrdinal
	}
	if strings.HasPrefix(e.Name, "_") && strings.Contains(e.Name, "@") {
		return NameTypeName
	}
	sym := e.symbolForNameType()
	if sym != e.Name {
		return NameTypeUndecorate
	}
	if m == machine.I386 && strings.HasPrefix(sym, "_") {
		return NameTypeNoPrefix
	}
	return NameTypeName
}
