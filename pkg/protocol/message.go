package protocol

import (
	"fmt"
	"time"
)

// Event is a decoded inbound frame handed to the user interface.
type Event interface {
	// PeerName returns the contact the event concerns.
	PeerName() string
}

// IncomingMessage is a data or broadcast message from a peer.
type IncomingMessage struct {
	Peer            string
	TimestampMillis int64 // Origination time, second resolution
	Text            string
	Broadcast       bool
}

// PeerName implements Event.
func (m *IncomingMessage) PeerName() string { return m.Peer }

// KeyOffer reports that a key exchange with Peer completed on the daemon side.
// Secrets are never handed back to the user interface.
type KeyOffer struct {
	Peer string
}

// PeerName implements Event.
func (k *KeyOffer) PeerName() string { return k.Peer }

// ===== ENCODING =====

// EncodeMessageFrame builds a data frame (or a broadcast frame when broadcast
// is set) stamped with the current time. The origination time is returned so
// callers can use it as the send correlation id.
func EncodeMessageFrame(peer, text string, broadcast bool) ([]byte, time.Time) {
	now := time.Now()
	return EncodeMessageFrameAt(peer, text, broadcast, now), now
}

// EncodeMessageFrameAt builds a data or broadcast frame stamped with t.
func EncodeMessageFrameAt(peer, text string, broadcast bool, t time.Time) []byte {
	size := HeaderSize + StringSize(peer) + StringSize(text)
	buf := make([]byte, size)

	code := CodeData
	if broadcast {
		code = CodeBroadcast
	}

	header := &Header{
		Length: uint32(size),
		Time:   uint64(t.Unix()),
		Code:   code,
	}
	header.Encode(buf)

	offset := PutString(buf, HeaderSize, peer)
	PutString(buf, offset, text)

	return buf
}

// EncodeKeyFrame builds a key exchange frame. The time field carries
// hopLimit. secret2 is optional and left out entirely when empty.
func EncodeKeyFrame(peer, secret1, secret2 string, hopLimit uint64) []byte {
	size := HeaderSize + StringSize(peer) + StringSize(secret1)
	if secret2 != "" {
		size += StringSize(secret2)
	}
	buf := make([]byte, size)

	header := &Header{
		Length: uint32(size),
		Time:   hopLimit & MaxUint48,
		Code:   CodeKeyExchange,
	}
	header.Encode(buf)

	offset := PutString(buf, HeaderSize, peer)
	offset = PutString(buf, offset, secret1)
	if secret2 != "" {
		PutString(buf, offset, secret2)
	}

	return buf
}

// ===== DECODING =====

// DecodeFrame decodes one received datagram.
//
// It returns the event to deliver, or nil when the frame carries nothing for
// the user interface, together with any warnings raised on the way. Warnings
// never stop decoding; they exist to be logged. Frames shorter than the header
// produce neither an event nor a warning.
func DecodeFrame(buf []byte) (Event, []error) {
	var header Header
	if err := header.Decode(buf); err != nil {
		return nil, nil
	}

	var warnings []error

	if int(header.Length) != len(buf) {
		warnings = append(warnings, fmt.Errorf("%w: embedded %d, received %d",
			ErrLengthMismatch, header.Length, len(buf)))
	}

	if !header.Code.Known() {
		warnings = append(warnings, fmt.Errorf("%w: %d", ErrUnknownCode, uint8(header.Code)))
	}

	peer, next, ok := ReadString(buf, HeaderSize)
	if !ok {
		warnings = append(warnings, fmt.Errorf("%w: peer", ErrFieldAbsent))
	}

	switch header.Code {
	case CodeData, CodeBroadcast:
		text, _, ok := ReadString(buf, next)
		if !ok {
			warnings = append(warnings, fmt.Errorf("%w: text from %q", ErrFieldAbsent, peer))
		}
		return &IncomingMessage{
			Peer:            peer,
			TimestampMillis: int64(header.Time) * 1000,
			Text:            text,
			Broadcast:       header.Code == CodeBroadcast,
		}, warnings

	case CodeKeyExchange:
		return &KeyOffer{Peer: peer}, warnings

	case CodeSecret:
		return nil, append(warnings, fmt.Errorf("%w: from %q", ErrSecretUnhandled, peer))

	default:
		return nil, warnings
	}
}
