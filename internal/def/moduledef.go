// Package def lexes and parses Windows module-definition (.DEF) text into a
// ModuleDef value (spec.md §3, §4.1, §4.2).
package def

// ShortExport is one entry of a .DEF file's EXPORTS block.
type ShortExport struct {
	// Name is the public symbol name as seen by importers. After facade
	// normalization (see ModuleDef.NormalizeExtNames) this always holds the
	// effective external name.
	Name string

	// ExtName is set when the "name = ext_name" syntax was used: Name holds
	// the internal name and ExtName holds the external one, until
	// normalization swaps them and clears ExtName.
	ExtName string

	// SymbolName is the mangled object-file name. Rarely set; defaults to
	// empty. The MSVC factory consults it (when non-empty) to pick the
	// symbol emitted into the object; the GNU factory ignores it (spec.md §9).
	SymbolName string

	// AliasTarget is the aliasee name from "name == target" syntax. Empty
	// when the export is not a weak alias.
	AliasTarget string

	// Ordinal is 1-based; 0 means "no ordinal specified".
	Ordinal uint16

	NoName   bool // ordinal-only export (NONAME)
	Data     bool
	Private  bool
	Constant bool
}

// ModuleDef is the parsed representation of a .DEF file (spec.md §3).
type ModuleDef struct {
	Exports    []ShortExport
	ImportName string

	ImageBase uint64

	StackReserve uint64
	StackCommit  uint64
	HeapReserve  uint64
	HeapCommit   uint64

	MajorImageVersion uint32
	MinorImageVersion uint32
	MajorOSVersion    uint32
	MinorOSVersion    uint32
}

// NormalizeExtNames applies the facade's once-only mutation (spec.md §3, §4.7,
// §9): for every export with a non-empty ExtName, Name is overwritten with
// ExtName and ExtName is cleared. After this call every ExtName is empty and
// Name holds the effective external name.
func (m *ModuleDef) NormalizeExtNames() {
	for i := range m.Exports {
		if m.Exports[i].ExtName != "" {
			m.Exports[i].Name = m.Exports[i].ExtName
			m.Exports[i].ExtName = ""
		}
	}
}
