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

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, conversation_id, sender_id, content, created_at, updated_at, is_edited, is_deleted, metadata, encryption_type`

// MessageStore defines the mechanical persistence operations for messages.
// No business rules live here; transport errors propagate unchanged.
type MessageStore interface {
	Insert(ctx context.Context, record models.MessageRecord) (models.MessageRecord, error)
	Get(ctx context.Context, messageID string) (models.MessageRecord, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.MessageRecord, error)
	UpdateContent(ctx context.Context, messageID, content string, encryptionType models.EncryptionType) (models.MessageRecord, error)
	SoftDelete(ctx context.Context, messageID string) error
	MarkRead(ctx context.Context, messageID, userID string) error
}

// MessageRepo is a sqlx-backed MessageStore.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert stores a new message record. The id is assigned here when absent.
func (r *MessageRepo) Insert(ctx context.Context, record models.MessageRecord) (models.MessageRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var stored models.MessageRecord
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, conversation_id, sender_id, content, created_at, metadata, encryption_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+messageColumns,
		record.ID, record.ConversationID, record.SenderID, record.Content, record.CreatedAt, record.Metadata, string(record.EncryptionType)).
		StructScan(&stored)
	return stored, err
}

// Get retrieves a single message record.
func (r *MessageRepo) Get(ctx context.Context, messageID string) (models.MessageRecord, error) {
	var record models.MessageRecord
	err := r.db.GetContext(ctx, &record, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageRecord{}, ErrMessageNotFound
	}
	return record, err
}

// ListByConversation returns one page of records in ascending creation order.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.MessageRecord, error) {
	var records []models.MessageRecord
	err := r.db.SelectContext(ctx, &records, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at ASC
        LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	return records, err
}

// UpdateContent replaces the ciphertext and marks the record edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID, content string, encryptionType models.EncryptionType) (models.MessageRecord, error) {
	var record models.MessageRecord
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET content=$2, encryption_type=$3, is_edited=TRUE, updated_at=NOW()
        WHERE id=$1
        RETURNING `+messageColumns, messageID, content, string(encryptionType)).
		StructScan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageRecord{}, ErrMessageNotFound
	}
	return record, err
}

// SoftDelete marks the record deleted without touching its content.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkRead records a read receipt. Repeated calls are no-ops.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)
        ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, userID)
	return err
}
