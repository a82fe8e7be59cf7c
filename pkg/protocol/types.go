package protocol

import "fmt"

// Protocol constants
const (
	// Fixed header: 4-byte length, 6-byte time or hops, 1-byte code
	HeaderSize = 11

	// Largest datagram exchanged with the daemon
	MTU = 12288

	// UDP port the xchat daemon listens on ("ALLnet Chat")
	BackendPort = 0xA11C

	// First datagram sent to the daemon so it learns our address
	Greeting = "hello world\n"

	// Largest value the 6-byte time-or-hops field can carry
	MaxUint48 = 1<<48 - 1
)

// Field offsets within the fixed header
const (
	offsetLength = 0
	offsetTime   = 4
	offsetCode   = 10
)

// Code identifies the kind of frame.
type Code uint8

// Frame codes
const (
	CodeData        Code = 0
	CodeBroadcast   Code = 1
	CodeKeyExchange Code = 2
	CodeSecret      Code = 3 // recognized, not decoded
)

// Known reports whether c is one of the codes defined by the protocol.
func (c Code) Known() bool {
	return c <= CodeSecret
}

func (c Code) String() string {
	switch c {
	case CodeData:
		return "data"
	case CodeBroadcast:
		return "broadcast"
	case CodeKeyExchange:
		return "key-exchange"
	case CodeSecret:
		return "secret"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}
