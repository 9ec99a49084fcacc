package coffwriter

import "encoding/binary"

// StringTable accumulates the COFF object string table: a 4-byte total
// length followed by NUL-terminated strings, used for symbol names longer
// than the inline 8-byte Symbol.Name field (spec.md §4.3).
//
// Offsets returned by Add are relative to the start of the length field
// itself, matching how COFF symbol records reference this table: the
// length prefix occupies the first 4 bytes, so the first string added
// lands at offset 4.
type StringTable struct {
	data []byte
}

// Add appends name (NUL-terminated) and returns its offset for use in a
// Symbol.Name field via ShortOrOffsetName.
func (st *StringTable) Add(name string) uint32 {
	offset := uint32(4 + len(st.data))
	st.data = append(st.data, name...)
	st.data = append(st.data, 0)
	return offset
}

// Empty reports whether no strings have been added.
func (st *StringTable) Empty() bool {
	return len(st.data) == 0
}

// Bytes renders the table: a little-endian 4-byte length (of the whole
// table including the length field itself) followed by the accumulated
// NUL-terminated strings.
func (st *StringTable) Bytes() []byte {
	out := make([]byte, 4, 4+len(st.data))
	binary.LittleEndian.PutUint32(out, uint32(4+len(st.data)))
	return append(out, st.data...)
}
