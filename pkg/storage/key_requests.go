package storage

import (
	"fmt"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
)

// ===== KEY REQUEST OPERATIONS =====

// SaveKeyRequest records a key exchange request. A sent request also marks
// the contact as having exchanged keys.
func (db *MessageDB) SaveKeyRequest(req *KeyRequest) error {
	secret1, err := crypto.AESEncrypt([]byte(req.Secret1), db.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %v", err)
	}

	var secret2 []byte
	if req.Secret2 != "" {
		secret2, err = crypto.AESEncrypt([]byte(req.Secret2), db.encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt secret: %v", err)
		}
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO key_requests (
			peer, secret1, secret2, hop_limit, requested_at, sent
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(
		query,
		req.Peer,
		secret1,
		secret2,
		int64(req.HopLimit),
		req.RequestedAt,
		boolToInt(req.Sent),
	)
	if err != nil {
		return fmt.Errorf("failed to save key request: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	if req.Sent {
		_, err = tx.Exec(`
			INSERT INTO contacts (peer, added_at, key_exchanged) VALUES (?, ?, 1)
			ON CONFLICT(peer) DO UPDATE SET key_exchanged = 1
		`, req.Peer, req.RequestedAt)
		if err != nil {
			return fmt.Errorf("failed to update contact: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	req.ID = id
	return nil
}

// GetKeyRequests lists the key exchanges started with peer, newest first
func (db *MessageDB) GetKeyRequests(peer string) ([]*KeyRequest, error) {
	query := `
		SELECT id, peer, secret1, secret2, hop_limit, requested_at, sent
		FROM key_requests
		WHERE peer = ?
		ORDER BY requested_at DESC, id DESC
	`

	rows, err := db.db.Query(query, peer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*KeyRequest{}

	for rows.Next() {
		var req KeyRequest
		var secret1, secret2 []byte
		var hopLimit int64
		var sent int

		err := rows.Scan(
			&req.ID,
			&req.Peer,
			&secret1,
			&secret2,
			&hopLimit,
			&req.RequestedAt,
			&sent,
		)
		if err != nil {
			return nil, err
		}

		req.HopLimit = uint64(hopLimit)
		req.Sent = intToBool(sent)

		plain, err := crypto.AESDecrypt(secret1, db.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt secret: %v", err)
		}
		req.Secret1 = string(plain)

		if len(secret2) > 0 {
			plain, err = crypto.AESDecrypt(secret2, db.encryptionKey)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt secret: %v", err)
			}
			req.Secret2 = string(plain)
		}

		requests = append(requests, &req)
	}

	return requests, rows.Err()
}
