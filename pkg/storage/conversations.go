package storage

import (
	"database/sql"
	"fmt"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
)

// ===== CONVERSATION OPERATIONS =====

// updateConversation updates conversation metadata after new message.
// Incoming messages bump the unread count.
func (db *MessageDB) updateConversation(tx *sql.Tx, msg *StoredMessage) error {
	encryptedPreview, err := crypto.AESEncrypt([]byte(preview(msg.Text)), db.encryptionKey)
	if err != nil {
		return err
	}

	unread := 1
	if msg.IsOutgoing {
		unread = 0
	}

	query := `
		INSERT INTO conversations (
			peer, last_message_id, last_message,
			last_timestamp, unread_count
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(peer) DO UPDATE SET
			last_message_id = CASE
				WHEN excluded.last_timestamp >= conversations.last_timestamp
				THEN excluded.last_message_id ELSE conversations.last_message_id END,
			last_message = CASE
				WHEN excluded.last_timestamp >= conversations.last_timestamp
				THEN excluded.last_message ELSE conversations.last_message END,
			last_timestamp = MAX(conversations.last_timestamp, excluded.last_timestamp),
			unread_count = conversations.unread_count + excluded.unread_count
	`

	_, err = tx.Exec(
		query,
		msg.Peer,
		msg.MessageID,
		encryptedPreview,
		msg.Timestamp,
		unread,
	)

	return err
}

// GetConversations retrieves all conversations, most recent first
func (db *MessageDB) GetConversations() ([]*Conversation, error) {
	query := `
		SELECT peer, last_message_id, last_message,
		       last_timestamp, unread_count
		FROM conversations
		ORDER BY last_timestamp DESC
	`

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []*Conversation{}

	for rows.Next() {
		var conv Conversation
		var encryptedPreview []byte

		err := rows.Scan(
			&conv.Peer,
			&conv.LastMessageID,
			&encryptedPreview,
			&conv.LastTimestamp,
			&conv.UnreadCount,
		)
		if err != nil {
			return nil, err
		}

		text, err := crypto.AESDecrypt(encryptedPreview, db.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt preview: %v", err)
		}
		conv.LastMessage = string(text)

		conversations = append(conversations, &conv)
	}

	return conversations, rows.Err()
}

// MarkConversationRead clears the unread count of the conversation with peer
func (db *MessageDB) MarkConversationRead(peer string) error {
	query := `UPDATE conversations SET unread_count = 0 WHERE peer = ?`
	_, err := db.db.Exec(query, peer)
	return err
}
