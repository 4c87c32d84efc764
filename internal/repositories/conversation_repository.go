package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `id, created_at, updated_at, last_message_at, last_message_preview, is_group, group_name, group_description, group_avatar_url, created_by, settings`

// ConversationStore defines the mechanical persistence operations for
// conversations, their participants and per-user visibility.
type ConversationStore interface {
	Insert(ctx context.Context, record models.ConversationRecord) (models.ConversationRecord, error)
	Get(ctx context.Context, conversationID string) (models.ConversationRecord, error)
	ListForUser(ctx context.Context, userID string) ([]models.ConversationRecord, error)
	Delete(ctx context.Context, conversationID string) error

	AddParticipant(ctx context.Context, conversationID, userID string) error
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	ListParticipants(ctx context.Context, conversationID string) ([]string, error)
	CountParticipants(ctx context.Context, conversationID string) (int, error)

	HideForUser(ctx context.Context, conversationID, userID string) error
	UnhideForUser(ctx context.Context, conversationID, userID string) error

	UpdatePreview(ctx context.Context, conversationID, preview string, at time.Time) error
	UpdateSettings(ctx context.Context, conversationID string, settings models.ConversationSettings) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

// ConversationRepo is a sqlx-backed ConversationStore.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Insert stores a new conversation record.
func (r *ConversationRepo) Insert(ctx context.Context, record models.ConversationRecord) (models.ConversationRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	var stored models.ConversationRecord
	err := r.db.QueryRowxContext(ctx, `INSERT INTO conversations (id, is_group, group_name, group_description, group_avatar_url, created_by, settings)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+conversationColumns,
		record.ID, record.IsGroup, record.GroupName, record.GroupDescription, record.GroupAvatarURL, record.CreatedBy, record.Settings).
		StructScan(&stored)
	return stored, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (models.ConversationRecord, error) {
	var record models.ConversationRecord
	err := r.db.GetContext(ctx, &record, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationRecord{}, ErrConversationNotFound
	}
	return record, err
}

// ListForUser returns conversations the user participates in and has not
// hidden, most recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.ConversationRecord, error) {
	var records []models.ConversationRecord
	err := r.db.SelectContext(ctx, &records, `SELECT c.id, c.created_at, c.updated_at, c.last_message_at, c.last_message_preview, c.is_group, c.group_name, c.group_description, c.group_avatar_url, c.created_by, c.settings
        FROM conversations c
        INNER JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id=$1
        LEFT JOIN conversation_visibility cv ON cv.conversation_id = c.id AND cv.user_id=$1
        WHERE cv.hidden IS NULL OR cv.hidden = FALSE
        ORDER BY c.updated_at DESC`, userID)
	return records, err
}

// Delete removes a conversation for everyone. Participants, visibility rows
// and messages go with it via cascade.
func (r *ConversationRepo) Delete(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, conversationID)
	return err
}

// AddParticipant registers a member. Re-adding is a no-op.
func (r *ConversationRepo) AddParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)
        ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, userID)
	return err
}

// RemoveParticipant drops a member row.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	return err
}

// ListParticipants returns member ids in join order.
func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM conversation_participants WHERE conversation_id=$1 ORDER BY joined_at ASC`, conversationID)
	return ids, err
}

// CountParticipants returns the current member count.
func (r *ConversationRepo) CountParticipants(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversation_participants WHERE conversation_id=$1`, conversationID)
	return count, err
}

// HideForUser suppresses the conversation from the user's fetch results.
func (r *ConversationRepo) HideForUser(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_visibility (conversation_id, user_id, hidden) VALUES ($1, $2, TRUE)
        ON CONFLICT (conversation_id, user_id) DO UPDATE SET hidden = TRUE`, conversationID, userID)
	return err
}

// UnhideForUser clears the hidden flag for the user.
func (r *ConversationRepo) UnhideForUser(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_visibility (conversation_id, user_id, hidden) VALUES ($1, $2, FALSE)
        ON CONFLICT (conversation_id, user_id) DO UPDATE SET hidden = FALSE`, conversationID, userID)
	return err
}

// UpdatePreview sets the preview excerpt and bumps both timestamps.
func (r *ConversationRepo) UpdatePreview(ctx context.Context, conversationID, preview string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_preview=$2, last_message_at=$3, updated_at=$3 WHERE id=$1`, conversationID, preview, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// UpdateSettings replaces the settings document.
func (r *ConversationRepo) UpdateSettings(ctx context.Context, conversationID string, settings models.ConversationSettings) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET settings=$2, updated_at=NOW() WHERE id=$1`, conversationID, settings)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// UnreadCount counts messages from others the user has not read yet.
func (r *ConversationRepo) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        WHERE m.conversation_id=$1 AND m.sender_id<>$2 AND m.is_deleted=FALSE
        AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id=m.id AND mr.user_id=$2)`, conversationID, userID)
	return count, err
}
