package storage

import (
	"log"
	"time"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
)

// Recorder writes dispatched events and user sends into the history
// database. It implements network.Consumer.
type Recorder struct {
	db  *MessageDB
	now func() time.Time
}

var _ network.Consumer = (*Recorder)(nil)

// NewRecorder creates a recorder backed by db
func NewRecorder(db *MessageDB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// MessageReceived implements network.Consumer
func (r *Recorder) MessageReceived(peer string, timestampMillis int64, text string) {
	contact := &Contact{Peer: peer, AddedAt: r.now().UnixMilli(), LastSeen: timestampMillis}
	if err := r.db.SaveContact(contact); err != nil {
		log.Printf("⚠️  Failed to save contact %q: %v", peer, err)
	}

	msg := &StoredMessage{
		Peer:      peer,
		Text:      text,
		Timestamp: timestampMillis,
		Status:    MessageStatusDelivered,
	}
	r.save(msg)
}

// ContactCreated implements network.Consumer
func (r *Recorder) ContactCreated(peer string) {
	contact := &Contact{Peer: peer, AddedAt: r.now().UnixMilli(), KeyExchanged: true}
	if err := r.db.SaveContact(contact); err != nil {
		log.Printf("⚠️  Failed to save contact %q: %v", peer, err)
	}
}

// RecordOutgoing stores a message the user sent. sentAt is the value returned
// by the send call; -1 records the message as failed.
func (r *Recorder) RecordOutgoing(peer, text string, broadcast bool, sentAt int64) *StoredMessage {
	msg := &StoredMessage{
		Peer:        peer,
		Text:        text,
		Timestamp:   sentAt,
		Status:      MessageStatusSent,
		IsOutgoing:  true,
		IsBroadcast: broadcast,
	}
	if sentAt < 0 {
		msg.Timestamp = r.now().UnixMilli()
		msg.Status = MessageStatusFailed
	}

	r.save(msg)
	return msg
}

// RecordKeyRequest stores a key exchange the user started
func (r *Recorder) RecordKeyRequest(peer, secret1, secret2 string, hopLimit uint64, sent bool) {
	req := &KeyRequest{
		Peer:        peer,
		Secret1:     secret1,
		Secret2:     secret2,
		HopLimit:    hopLimit,
		RequestedAt: r.now().UnixMilli(),
		Sent:        sent,
	}
	if err := r.db.SaveKeyRequest(req); err != nil {
		log.Printf("⚠️  Failed to save key request for %q: %v", peer, err)
	}
}

// save stores every delivery as its own row. Nothing below this layer
// duplicates datagrams, so equal content twice means the peer sent it twice.
func (r *Recorder) save(msg *StoredMessage) {
	id, err := crypto.UniqueMessageID(msg.Peer, msg.Timestamp, msg.Text, msg.IsOutgoing)
	if err != nil {
		log.Printf("⚠️  Failed to create message id for %q: %v", msg.Peer, err)
		return
	}
	msg.MessageID = id

	if err := r.db.SaveMessage(msg); err != nil {
		log.Printf("⚠️  Failed to save message for %q: %v", msg.Peer, err)
	}
}
