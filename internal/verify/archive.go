package verify

import (
	"fmt"
	"strconv"
	"strings"
)

// ArchiveMember is one member of a parsed ar archive, with its name
// already resolved through the extended name table when needed.
type ArchiveMember struct {
	Name string
	Data []byte
}

// ParseArchive parses data as a GNU-variant ar archive (the format
// produced by internal/arwriter) and returns its regular members, in
// archive order. The symbol-table member ("/", always the first member) and
// extended name-table member ("//") are consumed internally and never
// returned; a later header named "/" is a regular member with an empty name.
func ParseArchive(data []byte) ([]ArchiveMember, error) {
	const globalHeader = "!<arch>\n"
	if len(data) < len(globalHeader) || string(data[:len(globalHeader)]) != globalHeader {
		return nil, fmt.Errorf("verify: missing ar global header")
	}

	var nameTable string
	var members []ArchiveMember

	pos := len(globalHeader)
	for pos < len(data) {
		if pos+60 > len(data) {
			return nil, fmt.Errorf("verify: truncated member header at offset %d", pos)
		}
		isFirst := pos == len(globalHeader)
		header := data[pos : pos+60]
		pos += 60

		rawName := strings.TrimRight(string(header[0:16]), " ")
		sizeField := strings.TrimSpace(string(header[48:58]))
		size, err := strconv.Atoi(sizeField)
		if err != nil {
			return nil, fmt.Errorf("verify: malformed member size %q: %w", sizeField, err)
		}

		if pos+size > len(data) {
			return nil, fmt.Errorf("verify: member data runs past end of archive")
		}
		memberData := data[pos : pos+size]
		pos += size
		if size%2 != 0 {
			pos++
		}

		switch {
		case rawName == "/" && isFirst:
			// Symbol table: not needed by this reader, its information is
			// re-derived from each member's own COFF symbol table instead.
			continue
		case rawName == "//":
			nameTable = string(memberData)
			continue
		case strings.HasPrefix(rawName, "/") && rawName != "/":
			offset, err := strconv.Atoi(rawName[1:])
			if err != nil {
				return nil, fmt.Errorf("verify: malformed name-table offset %q: %w", rawName, err)
			}
			members = append(members, ArchiveMember{Name: resolveLongName(nameTable, offset), Data: memberData})
		default:
			members = append(members, ArchiveMember{Name: strings.TrimSuffix(rawName, "/"), Data: memberData})
		}
	}

	return members, nil
}

func resolveLongName(nameTable string, offset int) string {
	if offset < 0 || offset >= len(nameTable) {
		return ""
	}
	rest := nameTable[offset:]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSuffix(rest, "/")
}
