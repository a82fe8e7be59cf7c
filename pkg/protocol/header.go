package protocol

import "errors"

var (
	ErrShortFrame      = errors.New("frame shorter than header")
	ErrLengthMismatch  = errors.New("declared length differs from received length")
	ErrUnknownCode     = errors.New("unknown frame code")
	ErrSecretUnhandled = errors.New("secret frames are not decoded")
	ErrFieldAbsent     = errors.New("unterminated field")
)

// Header is the fixed 11-byte frame header.
type Header struct {
	Length uint32 // Declared size of the whole frame
	Time   uint64 // Seconds since epoch, or hop limit for key exchange
	Code   Code
}

// Encode writes the header into the first HeaderSize bytes of buf.
func (h *Header) Encode(buf []byte) {
	PutUint32(buf, offsetLength, h.Length)
	PutUint48(buf, offsetTime, h.Time)
	buf[offsetCode] = byte(h.Code)
}

// Decode reads the header from buf.
func (h *Header) Decode(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrShortFrame
	}

	h.Length = ReadUint32(buf, offsetLength)
	h.Time = ReadUint48(buf, offsetTime)
	h.Code = Code(buf[offsetCode])

	return nil
}

// HopLimit returns the time-or-hops field read as a hop count.
func (h *Header) HopLimit() uint64 {
	return h.Time
}
