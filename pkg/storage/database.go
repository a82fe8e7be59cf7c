package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrMessageExists     = errors.New("message already stored")
	ErrInvalidPagination = errors.New("invalid pagination")
)

// MessageStatus represents message delivery status
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// passwordCheck is encrypted with the derived key on first open and
// decrypted on every later open to detect a wrong passphrase.
var passwordCheck = []byte("xchat-history-v1")

// MessageDB keeps the conversation history the user interface shows.
// Message text and key exchange secrets are encrypted at rest.
type MessageDB struct {
	db            *sql.DB
	encryptionKey []byte // Derived from user passphrase
}

// StoredMessage represents a message in the database
type StoredMessage struct {
	ID          int64         `json:"-"`
	MessageID   string        `json:"message_id"`
	Peer        string        `json:"peer"`
	Text        string        `json:"text"`
	Timestamp   int64         `json:"timestamp"` // Milliseconds since epoch
	Status      MessageStatus `json:"status"`
	IsOutgoing  bool          `json:"outgoing"`
	IsBroadcast bool          `json:"broadcast"`
}

// Contact represents a peer known to the user interface
type Contact struct {
	Peer         string `json:"peer"`
	AddedAt      int64  `json:"added_at"`
	LastSeen     int64  `json:"last_seen"`
	KeyExchanged bool   `json:"key_exchanged"`
	IsBlocked    bool   `json:"blocked"`
}

// Conversation represents the message thread with one peer
type Conversation struct {
	Peer          string `json:"peer"`
	LastMessageID string `json:"last_message_id"`
	LastMessage   string `json:"last_message"`
	LastTimestamp int64  `json:"last_timestamp"`
	UnreadCount   int    `json:"unread_count"`
}

// KeyRequest records a key exchange the user started
type KeyRequest struct {
	ID          int64  `json:"id"`
	Peer        string `json:"peer"`
	Secret1     string `json:"secret1"`
	Secret2     string `json:"secret2,omitempty"`
	HopLimit    uint64 `json:"hops"`
	RequestedAt int64  `json:"requested_at"`
	Sent        bool   `json:"sent"`
}

// NewMessageDB opens (or creates) the history database at dbPath
func NewMessageDB(dbPath string, passphrase string) (*MessageDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	mdb := &MessageDB{db: db}

	if err := mdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if err := mdb.unlock(passphrase); err != nil {
		db.Close()
		return nil, err
	}

	return mdb, nil
}

// initSchema creates database tables
func (db *MessageDB) initSchema() error {
	schema := `
	-- Key derivation salt and passphrase check
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);

	-- Messages table
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT UNIQUE NOT NULL,
		peer TEXT NOT NULL,
		content BLOB NOT NULL,
		timestamp INTEGER NOT NULL,
		status TEXT NOT NULL,
		is_outgoing INTEGER NOT NULL,
		is_broadcast INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Contacts table
	CREATE TABLE IF NOT EXISTS contacts (
		peer TEXT PRIMARY KEY,
		added_at INTEGER NOT NULL,
		last_seen INTEGER NOT NULL DEFAULT 0,
		key_exchanged INTEGER NOT NULL DEFAULT 0,
		is_blocked INTEGER NOT NULL DEFAULT 0
	);

	-- Conversations table
	CREATE TABLE IF NOT EXISTS conversations (
		peer TEXT PRIMARY KEY,
		last_message_id TEXT NOT NULL,
		last_message BLOB NOT NULL,
		last_timestamp INTEGER NOT NULL,
		unread_count INTEGER NOT NULL DEFAULT 0
	);

	-- Key exchanges started from this user interface
	CREATE TABLE IF NOT EXISTS key_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		peer TEXT NOT NULL,
		secret1 BLOB NOT NULL,
		secret2 BLOB,
		hop_limit INTEGER NOT NULL,
		requested_at INTEGER NOT NULL,
		sent INTEGER NOT NULL
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_messages_peer ON messages(peer, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_conversations_last_timestamp ON conversations(last_timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_key_requests_peer ON key_requests(peer, requested_at DESC);
	`

	if _, err := db.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// unlock derives the encryption key. A fresh database gets a new salt and
// passphrase check; an existing one must decrypt its check value.
func (db *MessageDB) unlock(passphrase string) error {
	salt, err := db.setting("salt")
	if errors.Is(err, ErrNotFound) {
		return db.initKey(passphrase)
	}
	if err != nil {
		return err
	}

	check, err := db.setting("check")
	if err != nil {
		return err
	}

	key := crypto.DeriveKey(passphrase, salt)
	plain, err := crypto.AESDecrypt(check, key)
	if err != nil || !bytes.Equal(plain, passwordCheck) {
		return ErrInvalidPassword
	}

	db.encryptionKey = key
	return nil
}

func (db *MessageDB) initKey(passphrase string) error {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}

	key := crypto.DeriveKey(passphrase, salt)
	check, err := crypto.AESEncrypt(passwordCheck, key)
	if err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name, value := range map[string][]byte{"salt": salt, "check": check} {
		if _, err := tx.Exec(`INSERT INTO settings (name, value) VALUES (?, ?)`, name, value); err != nil {
			return fmt.Errorf("failed to store %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.encryptionKey = key
	return nil
}

func (db *MessageDB) setting(name string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRow(`SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return value, err
}

// Close closes the database connection
func (db *MessageDB) Close() error {
	return db.db.Close()
}
