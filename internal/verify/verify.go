// Package verify parses freshly generated COFF objects and ar archives
// back into summaries, so the msvc, gnu, and facade packages can assert
// on the structure of their own output instead of trusting the byte
// layout blindly (SPEC_FULL.md §4, §10).
package verify

import (
	"bytes"
	"debug/pe"
	"fmt"
)

// SectionSummary describes one section of a parsed COFF object.
type SectionSummary struct {
	Name            string
	Size            uint32
	Characteristics uint32
	Permissions     string
	Relocations     []RelocationSummary
}

// RelocationSummary describes one relocation entry, with its symbol
// already resolved by name.
type RelocationSummary struct {
	Offset     uint32
	SymbolName string
	Type       uint16
}

// SymbolSummary describes one entry of a parsed COFF object's symbol
// table.
type SymbolSummary struct {
	Name          string
	SectionNumber int16
	StorageClass  uint8
	Defined       bool
}

// ObjectSummary is the parsed structure of one archive member.
type ObjectSummary struct {
	Machine  uint16
	Sections []SectionSummary
	Symbols  []SymbolSummary
}

// ParseObject parses data as a COFF object file (the contents of one
// archive member) and summarizes its sections and symbol table.
func ParseObject(data []byte) (*ObjectSummary, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("verify: parsing COFF object: %w", err)
	}
	defer f.Close()

	summary := &ObjectSummary{Machine: f.Machine}

	for _, sec := range f.Sections {
		ss := SectionSummary{
			Name:            sec.Name,
			Size:            sec.Size,
			Characteristics: sec.Characteristics,
			Permissions:     sectionPermissions(sec.Characteristics),
		}
		for _, r := range sec.Relocs {
			name := "(out of range)"
			if int(r.SymbolTableIndex) < len(f.COFFSymbols) {
				name, err = f.COFFSymbols[r.SymbolTableIndex].FullName(f.StringTable)
				if err != nil {
					name = string(bytes.TrimRight(f.COFFSymbols[r.SymbolTableIndex].Name[:], "\x00"))
				}
			}
			ss.Relocations = append(ss.Relocations, RelocationSummary{
				Offset:     r.VirtualAddress,
				SymbolName: name,
				Type:       r.Type,
			})
		}
		summary.Sections = append(summary.Sections, ss)
	}

	for _, sym := range f.COFFSymbols {
		name, err := sym.FullName(f.StringTable)
		if err != nil {
			name = string(bytes.TrimRight(sym.Name[:], "\x00"))
		}
		summary.Symbols = append(summary.Symbols, SymbolSummary{
			Name:          name,
			SectionNumber: sym.SectionNumber,
			StorageClass:  sym.StorageClass,
			Defined:       sym.SectionNumber > 0,
		})
	}

	return summary, nil
}

// SymbolNamed returns the first symbol in s whose name matches, and
// whether one was found.
func (s *ObjectSummary) SymbolNamed(name string) (SymbolSummary, bool) {
	for _, sym := range s.Symbols {
		if sym.Name == name {
			return sym, true
		}
	}
	return SymbolSummary{}, false
}

// SectionNamed returns the first section in s whose name matches, and
// whether one was found.
func (s *ObjectSummary) SectionNamed(name string) (SectionSummary, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return SectionSummary{}, false
}

func sectionPermissions(c uint32) string {
	var perms [3]rune
	perms[0], perms[1], perms[2] = '-', '-', '-'
	const (
		memRead    = 0x40000000
		memWrite   = 0x80000000
		memExecute = 0x20000000
	)
	if c&memRead != 0 {
		perms[0] = 'R'
	}
	if c&memWrite != 0 {
		perms[1] = 'W'
	}
	if c&memExecute != 0 {
		perms[2] = 'X'
	}
	return string(perms[:])
}
