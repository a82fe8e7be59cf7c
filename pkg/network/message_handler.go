package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// receiveLoop reads datagrams until the channel fails or ctx is cancelled.
// The buffer is reused; DecodeFrame copies every string it returns.
func (d *Dispatcher) receiveLoop(ctx context.Context) error {
	buf := make([]byte, protocol.MTU)

	for {
		addr, n, err := d.channel.Receive(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Receive loop stopped")
				return nil
			}
			log.Printf("❌ Receive got an error: %v", err)
			return fmt.Errorf("%w: %v", ErrReceiveFailed, err)
		}

		d.handleDatagram(addr, buf[:n])
	}
}

// handleDatagram filters by origin, decodes and delivers one datagram
func (d *Dispatcher) handleDatagram(addr net.Addr, data []byte) {
	d.observer.DatagramReceived(len(data))

	if err := d.channel.CheckOrigin(addr); err != nil {
		log.Printf("⚠️  Ignoring datagram: %v", err)
		if errors.Is(err, ErrUntrustedPort) {
			d.observer.FrameDropped(DropReasonUntrustedPort)
		} else {
			d.observer.FrameDropped(DropReasonUntrustedAddress)
		}
		return
	}

	event, warnings := protocol.DecodeFrame(data)
	for _, w := range warnings {
		log.Printf("⚠️  Frame from backend: %v", w)
		d.observer.FrameWarning(w)
	}

	switch e := event.(type) {
	case *protocol.IncomingMessage:
		code := protocol.CodeData
		if e.Broadcast {
			code = protocol.CodeBroadcast
		}
		log.Printf("📨 %s from %q (%d bytes)", code, e.Peer, len(e.Text))
		d.observer.FrameDecoded(code)
		d.consumer.MessageReceived(e.Peer, e.TimestampMillis, e.Text)

	case *protocol.KeyOffer:
		log.Printf("🔑 New key from %q", e.Peer)
		d.observer.FrameDecoded(protocol.CodeKeyExchange)
		d.consumer.ContactCreated(e.Peer)

	default:
		d.observer.FrameDropped(dropReason(data))
	}
}

func dropReason(data []byte) DropReason {
	if len(data) < protocol.HeaderSize {
		return DropReasonTooShort
	}
	if protocol.Code(data[protocol.HeaderSize-1]) == protocol.CodeSecret {
		return DropReasonSecret
	}
	return DropReasonUnknownCode
}
