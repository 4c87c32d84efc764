package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ConversationSettings stores per-conversation preferences as JSONB.
type ConversationSettings struct {
	Muted             bool   `json:"muted"`
	Theme             string `json:"theme,omitempty"`
	AutoDeleteSeconds int    `json:"auto_delete_seconds,omitempty"`
}

func (s ConversationSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ConversationSettings) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = ConversationSettings{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported settings source %T", src)
	}
}

// ConversationRecord is the persisted shape of a conversation. IsGroup is
// fixed at creation and never recomputed.
type ConversationRecord struct {
	ID                 string               `db:"id" json:"id"`
	CreatedAt          time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at" json:"updated_at"`
	LastMessageAt      *time.Time           `db:"last_message_at" json:"last_message_at,omitempty"`
	LastMessagePreview *string              `db:"last_message_preview" json:"last_message_preview,omitempty"`
	IsGroup            bool                 `db:"is_group" json:"is_group"`
	GroupName          *string              `db:"group_name" json:"group_name,omitempty"`
	GroupDescription   *string              `db:"group_description" json:"group_description,omitempty"`
	GroupAvatarURL     *string              `db:"group_avatar_url" json:"group_avatar_url,omitempty"`
	CreatedBy          *string              `db:"created_by" json:"created_by,omitempty"`
	Settings           ConversationSettings `db:"settings" json:"settings"`
}

// ConversationParticipant pairs a member id with its resolved profile. The
// profile carries the public key consulted during scheme selection.
type ConversationParticipant struct {
	UserID string    `json:"user_id"`
	User   *UserInfo `json:"user,omitempty"`
}

// Conversation is the domain view returned to callers.
type Conversation struct {
	ConversationRecord
	Participants []ConversationParticipant `json:"participants"`
	Messages     []Message                 `json:"messages,omitempty"`
	UnreadCount  int                       `json:"unread_count"`
}
