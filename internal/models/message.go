package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EncryptionType tags a stored message with the scheme used at send time.
// The tag is immutable once set and decides the decryption path forever.
type EncryptionType string

const (
	EncryptionLegacy  EncryptionType = "legacy"
	EncryptionE2EE    EncryptionType = "e2ee"
	EncryptionUnknown EncryptionType = ""
)

// ParseEncryptionType maps a stored tag onto the closed set of schemes.
func ParseEncryptionType(raw string) EncryptionType {
	switch EncryptionType(raw) {
	case EncryptionLegacy:
		return EncryptionLegacy
	case EncryptionE2EE:
		return EncryptionE2EE
	default:
		return EncryptionUnknown
	}
}

// Known reports whether the tag names a supported scheme.
func (t EncryptionType) Known() bool {
	return t == EncryptionLegacy || t == EncryptionE2EE
}

// Metadata is an opaque string map stored as JSONB alongside a message.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata source %T", src)
	}
}

// MessageRecord is the persisted shape of a message. Content holds
// ciphertext; the record never carries plaintext.
type MessageRecord struct {
	ID             string         `db:"id" json:"id"`
	ConversationID string         `db:"conversation_id" json:"conversation_id"`
	SenderID       string         `db:"sender_id" json:"sender_id"`
	Content        string         `db:"content" json:"content"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
	IsEdited       bool           `db:"is_edited" json:"is_edited"`
	IsDeleted      bool           `db:"is_deleted" json:"is_deleted"`
	Metadata       Metadata       `db:"metadata" json:"metadata,omitempty"`
	EncryptionType EncryptionType `db:"encryption_type" json:"encryption_type"`
}

// Message is the decrypted domain view of a record, built transiently on
// every fetch or send. Content is plaintext here.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
	IsEdited       bool           `json:"is_edited"`
	IsDeleted      bool           `json:"is_deleted"`
	EncryptionType EncryptionType `json:"encryption_type"`
	Sender         *UserInfo      `json:"sender,omitempty"`
}
