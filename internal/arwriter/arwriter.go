// Package arwriter writes GNU-format ar archives: the symbol-lookup member
// (name "/"), the extended-name-table member (name "//"), and the ordinary
// members that hold the COFF objects produced by internal/msvc and
// internal/gnu (spec.md §4.6).
//
// The symbol table's per-symbol offsets are unknown until the member they
// point at has actually been written, so the writer reserves a sentinel
// word (0xcafebabe, matching the upstream `ar` crate this format is ported
// from) for each symbol up front and back-patches it via Seek once the
// owning member's final stream position is known.
package arwriter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrTooManySymbols is returned when the archive's combined symbol count
// does not fit in the 32-bit symbol-table header.
var ErrTooManySymbols = errors.New("arwriter: symbol count exceeds 32-bit table capacity")

// ErrArchiveTooLarge is returned when a member's offset would exceed the
// 32-bit range the GNU symbol table can record.
var ErrArchiveTooLarge = errors.New("arwriter: archive exceeds 4GiB offset range")

const (
	globalHeader   = "!<arch>\n"
	sentinelOffset = 0xcafebabe
	headerSize     = 60
)

// Member is one entry to append to the archive: a name (the archive member
// identifier, typically a synthesized object-file name), its raw data, and
// the list of external symbol names it exports into the archive's global
// index.
type Member struct {
	Name    string
	Data    []byte
	Symbols []string
}

// Options configures the non-content parts of a member header.
type Options struct {
	// Deterministic zeroes mtime/uid/gid across every member header so
	// that identical input produces byte-identical archives.
	Deterministic bool
	ModTime       int64
	UID, GID      uint32
}

// Write renders members as a GNU ar archive to w, which must support Seek
// so the symbol table's member offsets can be back-patched after the fact.
func Write(w io.WriteSeeker, members []Member, opts Options) error {
	longOffsets, nameTable := buildNameTable(members)
	nameTablePadded := nameTable.Len()%2 != 0

	if _, err := io.WriteString(w, globalHeader); err != nil {
		return err
	}

	perMember, err := writeSymbolTable(w, members)
	if err != nil {
		return err
	}

	if nameTable.Len() > 0 {
		size := nameTable.Len()
		if nameTablePadded {
			size += 3
		}
		if err := writeBlankHeader(w, "//", size); err != nil {
			return err
		}
		if _, err := w.Write(nameTable.Bytes()); err != nil {
			return err
		}
		if nameTablePadded {
			if _, err := io.WriteString(w, " /\n"); err != nil {
				return err
			}
		}
	}

	for i, m := range members {
		if perMember != nil {
			if err := backpatch(w, perMember[i]); err != nil {
				return err
			}
		}
		if err := writeMemberHeader(w, m.Name, len(m.Data), longOffsets, opts); err != nil {
			return err
		}
		if _, err := w.Write(m.Data); err != nil {
			return err
		}
		if len(m.Data)%2 != 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildNameTable assigns string-table offsets to every member identifier
// longer than 15 bytes, in member order, and renders the extended name
// table payload (each entry terminated by "/\n", no inter-entry padding).
func buildNameTable(members []Member) (map[string]uint32, bytes.Buffer) {
	offsets := make(map[string]uint32)
	var table bytes.Buffer
	for _, m := range members {
		if len(m.Name) <= 15 {
			continue
		}
		if _, ok := offsets[m.Name]; ok {
			continue
		}
		offsets[m.Name] = uint32(table.Len())
		table.WriteString(m.Name)
		table.WriteString("/\n")
	}
	return offsets, table
}

// writeSymbolTable writes the "/" member (count, sentinel offsets, NUL-
// terminated names) if any member carries symbols, and returns, per
// member, the absolute stream positions of that member's sentinel slots
// for later back-patching. It returns a nil slice if no member has any
// symbols, signaling that the main loop should skip back-patching.
func writeSymbolTable(w io.WriteSeeker, members []Member) ([][]int64, error) {
	total := 0
	for _, m := range members {
		total += len(m.Symbols)
	}
	if total == 0 {
		return nil, nil
	}
	if total > math.MaxUint32 {
		return nil, ErrTooManySymbols
	}

	var names bytes.Buffer
	for _, m := range members {
		for _, s := range m.Symbols {
			names.WriteString(s)
			names.WriteByte(0)
		}
	}

	size := 4 + 4*total + names.Len()
	needsPad := size%2 != 0
	if needsPad {
		size += 3
	}
	if err := writeZeroHeader(w, "/", size); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(total)); err != nil {
		return nil, err
	}

	perMember := make([][]int64, len(members))
	for i, m := range members {
		positions := make([]int64, 0, len(m.Symbols))
		for range m.Symbols {
			pos, err := w.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, err
			}
			positions = append(positions, pos)
			if err := binary.Write(w, binary.BigEndian, uint32(sentinelOffset)); err != nil {
				return nil, err
			}
		}
		perMember[i] = positions
	}

	if _, err := w.Write(names.Bytes()); err != nil {
		return nil, err
	}
	if needsPad {
		if _, err := io.WriteString(w, " /\n"); err != nil {
			return nil, err
		}
	}
	return perMember, nil
}

// backpatch records the current (about-to-be-written) member's offset into
// every reserved sentinel slot, then seeks back to continue writing.
func backpatch(w io.WriteSeeker, positions []int64) error {
	entryOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if entryOffset > math.MaxUint32 {
		return ErrArchiveTooLarge
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(entryOffset))
	for _, pos := range positions {
		if _, err := w.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	_, err = w.Seek(entryOffset, io.SeekStart)
	return err
}

// writeZeroHeader writes a 60-byte member header whose metadata fields are
// the explicit literal zero (used only by the symbol-table member).
func writeZeroHeader(w io.Writer, name string, size int) error {
	s := fmt.Sprintf("%-16s%-12d%-6d%-6d%-8o%-10d`\n", name, 0, 0, 0, 0, size)
	return writeExact(w, s)
}

// writeBlankHeader writes a 60-byte member header whose metadata region is
// left entirely blank (used only by the extended-name-table member).
func writeBlankHeader(w io.Writer, name string, size int) error {
	s := fmt.Sprintf("%-48s%-10d`\n", name, size)
	return writeExact(w, s)
}

// writeMemberHeader writes an ordinary member's 60-byte header: the name
// field inline (the name, a trailing "/", then spaces up to 16 bytes) or, for
// identifiers over 15 bytes, "/" followed by its decimal name-table
// offset; then mtime/uid/gid/mode/size, zeroed when opts.Deterministic.
func writeMemberHeader(w io.Writer, name string, size int, longOffsets map[string]uint32, opts Options) error {
	var nameField string
	if len(name) > 15 {
		nameField = fmt.Sprintf("/%-15d", longOffsets[name])
	} else {
		nameField = name + "/" + strings.Repeat(" ", 15-len(name))
	}

	var mtime int64
	var uid, gid uint32
	if !opts.Deterministic {
		mtime, uid, gid = opts.ModTime, opts.UID, opts.GID
	}
	s := nameField + fmt.Sprintf("%-12d%-6d%-6d%-8o%-10d`\n", mtime, uid, gid, 0644, size)
	return writeExact(w, s)
}

func writeExact(w io.Writer, s string) error {
	if len(s) != headerSize {
		return fmt.Errorf("arwriter: internal error: header is %d bytes, want %d (%q)", len(s), headerSize, s)
	}
	_, err := io.WriteString(w, s)
	return err
}
