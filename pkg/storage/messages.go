package storage

import (
	"database/sql"
	"fmt"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
)

// ===== MESSAGE OPERATIONS =====

// SaveMessage stores a message and updates its conversation. An empty
// MessageID is filled in from the message contents; saving the same id twice
// returns ErrMessageExists and changes nothing.
func (db *MessageDB) SaveMessage(msg *StoredMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = crypto.MessageID(msg.Peer, msg.Timestamp, msg.Text, msg.IsOutgoing)
	}
	if msg.Status == "" {
		msg.Status = MessageStatusDelivered
	}

	// Encrypt content
	encryptedContent, err := crypto.AESEncrypt([]byte(msg.Text), db.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt content: %v", err)
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO messages (
			message_id, peer, content, timestamp, status,
			is_outgoing, is_broadcast
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(
		query,
		msg.MessageID,
		msg.Peer,
		encryptedContent,
		msg.Timestamp,
		msg.Status,
		boolToInt(msg.IsOutgoing),
		boolToInt(msg.IsBroadcast),
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMessageExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	// Update conversation
	if err := db.updateConversation(tx, msg); err != nil {
		return fmt.Errorf("failed to update conversation: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message by ID
func (db *MessageDB) GetMessage(messageID string) (*StoredMessage, error) {
	query := `
		SELECT id, message_id, peer, content, timestamp, status,
		       is_outgoing, is_broadcast
		FROM messages WHERE message_id = ?
	`

	msg, err := db.scanMessage(db.db.QueryRow(query, messageID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// GetConversationMessages retrieves messages exchanged with peer, newest first
func (db *MessageDB) GetConversationMessages(peer string, limit, offset int) ([]*StoredMessage, error) {
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalidPagination
	}

	query := `
		SELECT id, message_id, peer, content, timestamp, status,
		       is_outgoing, is_broadcast
		FROM messages
		WHERE peer = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.db.Query(query, peer, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*StoredMessage{}

	for rows.Next() {
		msg, err := db.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// UpdateMessageStatus updates the delivery status of a message
func (db *MessageDB) UpdateMessageStatus(messageID string, status MessageStatus) error {
	query := `UPDATE messages SET status = ? WHERE message_id = ?`
	result, err := db.db.Exec(query, status, messageID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteMessage deletes a message
func (db *MessageDB) DeleteMessage(messageID string) error {
	query := `DELETE FROM messages WHERE message_id = ?`
	_, err := db.db.Exec(query, messageID)
	return err
}

func (db *MessageDB) scanMessage(row rowScanner) (*StoredMessage, error) {
	var msg StoredMessage
	var encryptedContent []byte
	var isOutgoing, isBroadcast int

	err := row.Scan(
		&msg.ID,
		&msg.MessageID,
		&msg.Peer,
		&encryptedContent,
		&msg.Timestamp,
		&msg.Status,
		&isOutgoing,
		&isBroadcast,
	)
	if err != nil {
		return nil, err
	}

	msg.IsOutgoing = intToBool(isOutgoing)
	msg.IsBroadcast = intToBool(isBroadcast)

	// Decrypt content
	content, err := crypto.AESDecrypt(encryptedContent, db.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %v", err)
	}
	msg.Text = string(content)

	return &msg, nil
}
