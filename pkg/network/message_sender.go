package network

import (
	"log"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// SendMessage encodes and sends a data frame, or a broadcast frame when
// broadcast is set. It returns the send time in milliseconds, which callers
// use to correlate the message.
func (d *Dispatcher) SendMessage(peer, text string, broadcast bool) (int64, error) {
	frame, sentAt := protocol.EncodeMessageFrame(peer, text, broadcast)

	kind := SendKindMessage
	if broadcast {
		kind = SendKindBroadcast
	}
	if err := d.send(kind, frame); err != nil {
		return -1, err
	}

	return sentAt.UnixMilli(), nil
}

// SendKey encodes and sends a key exchange frame. secret2 may be empty.
func (d *Dispatcher) SendKey(peer, secret1, secret2 string, hopLimit uint64) error {
	frame := protocol.EncodeKeyFrame(peer, secret1, secret2, hopLimit)
	return d.send(SendKindKey, frame)
}

// SendToPeer sends text to peer and returns the send time in milliseconds,
// or -1 on failure.
func (d *Dispatcher) SendToPeer(peer, text string) int64 {
	sentAt, err := d.SendMessage(peer, text, false)
	if err != nil {
		log.Printf("❌ Send to %q failed: %v", peer, err)
		return -1
	}
	return sentAt
}

// SendBroadcast sends text to every contact, same return convention as
// SendToPeer.
func (d *Dispatcher) SendBroadcast(text string) int64 {
	sentAt, err := d.SendMessage("", text, true)
	if err != nil {
		log.Printf("❌ Broadcast failed: %v", err)
		return -1
	}
	return sentAt
}

// SendKeyRequest asks the daemon to start a key exchange with peer
func (d *Dispatcher) SendKeyRequest(peer, secret1, secret2 string, hopLimit uint64) bool {
	if err := d.SendKey(peer, secret1, secret2, hopLimit); err != nil {
		log.Printf("❌ Key request for %q failed: %v", peer, err)
		return false
	}
	return true
}

func (d *Dispatcher) send(kind SendKind, frame []byte) error {
	err := d.channel.Send(frame)
	d.observer.FrameSent(kind, err == nil)
	return err
}
