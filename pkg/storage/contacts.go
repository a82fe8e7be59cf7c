package storage

import (
	"database/sql"
)

// ===== CONTACT OPERATIONS =====

// SaveContact adds or updates a contact. AddedAt is kept from the first save
// and the blocked flag only changes through BlockContact/UnblockContact.
func (db *MessageDB) SaveContact(contact *Contact) error {
	query := `
		INSERT INTO contacts (
			peer, added_at, last_seen, key_exchanged, is_blocked
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(peer) DO UPDATE SET
			last_seen = MAX(contacts.last_seen, excluded.last_seen),
			key_exchanged = MAX(contacts.key_exchanged, excluded.key_exchanged)
	`

	_, err := db.db.Exec(
		query,
		contact.Peer,
		contact.AddedAt,
		contact.LastSeen,
		boolToInt(contact.KeyExchanged),
		boolToInt(contact.IsBlocked),
	)

	return err
}

// GetContact retrieves a contact by peer name
func (db *MessageDB) GetContact(peer string) (*Contact, error) {
	query := `
		SELECT peer, added_at, last_seen, key_exchanged, is_blocked
		FROM contacts WHERE peer = ?
	`

	contact, err := scanContact(db.db.QueryRow(query, peer))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return contact, nil
}

// GetAllContacts retrieves all contacts ordered by name
func (db *MessageDB) GetAllContacts() ([]*Contact, error) {
	query := `
		SELECT peer, added_at, last_seen, key_exchanged, is_blocked
		FROM contacts
		ORDER BY peer ASC
	`

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*Contact{}

	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

// DeleteContact removes a contact
func (db *MessageDB) DeleteContact(peer string) error {
	query := `DELETE FROM contacts WHERE peer = ?`
	_, err := db.db.Exec(query, peer)
	return err
}

// BlockContact blocks a contact
func (db *MessageDB) BlockContact(peer string) error {
	query := `UPDATE contacts SET is_blocked = 1 WHERE peer = ?`
	_, err := db.db.Exec(query, peer)
	return err
}

// UnblockContact unblocks a contact
func (db *MessageDB) UnblockContact(peer string) error {
	query := `UPDATE contacts SET is_blocked = 0 WHERE peer = ?`
	_, err := db.db.Exec(query, peer)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var contact Contact
	var keyExchanged, isBlocked int

	err := row.Scan(
		&contact.Peer,
		&contact.AddedAt,
		&contact.LastSeen,
		&keyExchanged,
		&isBlocked,
	)
	if err != nil {
		return nil, err
	}

	contact.KeyExchanged = intToBool(keyExchanged)
	contact.IsBlocked = intToBool(isBlocked)

	return &contact, nil
}
