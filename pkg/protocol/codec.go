package protocol

import "encoding/binary"

// ReadUint32 reads a big-endian 32-bit value at start. It returns 0 when
// fewer than 4 bytes remain; a missing value is not an error.
func ReadUint32(buf []byte, start int) uint32 {
	if start < 0 || start+4 > len(buf) {
		return 0
	}
	return binary.BigEndian.Uint32(buf[start : start+4])
}

// PutUint32 writes v big-endian at start.
func PutUint32(buf []byte, start int, v uint32) {
	binary.BigEndian.PutUint32(buf[start:start+4], v)
}

// ReadUint48 reads a big-endian 48-bit value at start, with the same
// short-buffer policy as ReadUint32.
func ReadUint48(buf []byte, start int) uint64 {
	if start < 0 || start+6 > len(buf) {
		return 0
	}
	b := buf[start : start+6]
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// PutUint48 writes the low 48 bits of v big-endian at start.
func PutUint48(buf []byte, start int, v uint64) {
	b := buf[start : start+6]
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

// ReadString reads a NUL-terminated string starting at start.
//
// On success it returns the string and the offset just past the NUL. A NUL
// at start yields the empty string. When no NUL is found before the end of
// buf the field is absent: ok is false and next is len(buf).
func ReadString(buf []byte, start int) (s string, next int, ok bool) {
	if start < 0 || start >= len(buf) {
		return "", len(buf), false
	}
	for i := start; i < len(buf); i++ {
		if buf[i] == 0 {
			return string(buf[start:i]), i + 1, true
		}
	}
	return "", len(buf), false
}

// PutString writes s followed by a NUL at start and returns the offset after
// the NUL. buf must hold at least start+len(s)+1 bytes.
func PutString(buf []byte, start int, s string) int {
	end := start + copy(buf[start:], s)
	buf[end] = 0
	return end + 1
}

// StringSize is the encoded size of s including its terminator.
func StringSize(s string) int {
	return len(s) + 1
}
