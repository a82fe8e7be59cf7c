// Package protocol implements the xchat frame format spoken between the chat
// user interface and the local xchat daemon.
//
// # Frame Format
//
// Every datagram carries exactly one frame:
//   - Length (4 bytes, big-endian): size of the whole frame, this field included
//   - Time or hops (6 bytes, big-endian): origination time in seconds for data
//     and broadcast frames, hop limit for key exchange frames
//   - Code (1 byte): 0 data, 1 broadcast, 2 key exchange, 3 secret
//   - Peer (NUL-terminated): name of the remote contact
//   - Payload (NUL-terminated fields): message text, or one or two secrets
//
// The first 11 bytes form the fixed header. An empty string is encoded as a
// single NUL byte.
//
// # Leniency
//
// The daemon is allowed to evolve ahead of the user interface, so decoding is
// lenient. A declared length that disagrees with the datagram size and an
// unknown code are reported as warnings while decoding carries on against the
// bytes actually received. Only frames shorter than the fixed header are
// dropped without comment.
//
// # Usage
//
//	frame, sentAt := protocol.EncodeMessageFrame("alice", "hi", false)
//	event, warnings := protocol.DecodeFrame(frame)
//	for _, w := range warnings {
//		log.Printf("frame warning: %v", w)
//	}
//	if msg, ok := event.(*protocol.IncomingMessage); ok {
//		fmt.Println(msg.Peer, msg.Text, sentAt.UnixMilli())
//	}
package protocol
