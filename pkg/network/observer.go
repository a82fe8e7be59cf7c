package network

import "github.com/ZentaChain/zentalk-xchat/pkg/protocol"

// SendKind labels outbound frames for metrics
type SendKind string

const (
	SendKindGreeting  SendKind = "greeting"
	SendKindMessage   SendKind = "message"
	SendKindBroadcast SendKind = "broadcast"
	SendKindKey       SendKind = "key"
)

// DropReason labels datagrams that produced no event
type DropReason string

const (
	DropReasonUntrustedPort    DropReason = "untrusted_port"
	DropReasonUntrustedAddress DropReason = "untrusted_address"
	DropReasonTooShort         DropReason = "too_short"
	DropReasonSecret           DropReason = "secret"
	DropReasonUnknownCode      DropReason = "unknown_code"
)

// Observer receives dispatch metrics hooks. Implementations must be safe
// for concurrent use; senders call FrameSent from arbitrary goroutines.
type Observer interface {
	DatagramReceived(size int)
	FrameDropped(reason DropReason)
	FrameWarning(err error)
	FrameDecoded(code protocol.Code)
	FrameSent(kind SendKind, ok bool)
}

// NopObserver discards all hooks
type NopObserver struct{}

func (NopObserver) DatagramReceived(int)       {}
func (NopObserver) FrameDropped(DropReason)    {}
func (NopObserver) FrameWarning(error)         {}
func (NopObserver) FrameDecoded(protocol.Code) {}
func (NopObserver) FrameSent(SendKind, bool)   {}
