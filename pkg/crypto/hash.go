package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// NonceSize is the random salt length used by UniqueMessageID
const NonceSize = 16

// Hash generates a BLAKE2b-256 hash
func Hash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// HashString generates a BLAKE2b-256 hash and returns it as hex
func HashString(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// MessageID derives a stable identifier for a chat message.
//
// The wire format carries no message id, so the id is a hash over everything
// that distinguishes one message from another. Identical inputs give the same
// id.
func MessageID(peer string, timestampMillis int64, text string, outgoing bool) string {
	return messageID(nil, peer, timestampMillis, text, outgoing)
}

// UniqueMessageID is MessageID salted with a random nonce. Inbound timestamps
// only have second resolution, so a peer repeating itself within a second
// still gets two ids.
func UniqueMessageID(peer string, timestampMillis int64, text string, outgoing bool) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return messageID(nonce, peer, timestampMillis, text, outgoing), nil
}

func messageID(nonce []byte, peer string, timestampMillis int64, text string, outgoing bool) string {
	h, _ := blake2b.New256(nil)
	h.Write(nonce)

	var hdr [9]byte
	binary.BigEndian.PutUint64(hdr[:8], uint64(timestampMillis))
	if outgoing {
		hdr[8] = 1
	}
	h.Write(hdr[:])

	// Length prefixes keep ("ab","c") and ("a","bc") apart
	writeField(h, peer)
	writeField(h, text)

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
