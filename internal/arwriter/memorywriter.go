package arwriter

import (
	"errors"
	"io"
)

var (
	errInvalidWhence    = errors.New("arwriter: invalid seek whence")
	errNegativePosition = errors.New("arwriter: negative seek position")
)

// MemoryWriter is a minimal in-memory io.WriteSeeker, used as the archive
// destination when the caller wants the finished bytes back directly
// rather than writing to an *os.File.
type MemoryWriter struct {
	buf []byte
	pos int64
}

// Write implements io.Writer, overwriting in place at the current seek
// position and extending the buffer when writing past its current end.
func (m *MemoryWriter) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (m *MemoryWriter) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, errInvalidWhence
	}
	if pos < 0 {
		return 0, errNegativePosition
	}
	m.pos = pos
	return pos, nil
}

// Bytes returns the accumulated archive bytes.
func (m *MemoryWriter) Bytes() []byte {
	return m.buf
}
