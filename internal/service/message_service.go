package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"messaging-service/internal/crypto"
	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

// fetchPageSize bounds message fetches. No cursor paging at this layer.
const fetchPageSize = 50

const previewMaxLen = 120

// MessageService orchestrates message operations over the stores, the
// hybrid cipher selector and the user directory. It holds no mutable state
// and is safe to share across concurrent callers.
type MessageService struct {
	messages      repositories.MessageStore
	conversations repositories.ConversationStore
	selector      *crypto.Selector
	resolver      directory.Resolver
	broker        *realtime.Broker
}

// NewMessageService constructs a MessageService.
func NewMessageService(messages repositories.MessageStore, conversations repositories.ConversationStore, selector *crypto.Selector, resolver directory.Resolver, broker *realtime.Broker) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		selector:      selector,
		resolver:      resolver,
		broker:        broker,
	}
}

// Send encrypts and persists a new message. Scheme selection runs once per
// send; an encryption failure aborts before anything is written. The
// conversation preview is updated with the plaintext excerpt.
func (s *MessageService) Send(ctx context.Context, conversationID, content, senderID string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, ErrInvalidContent
	}

	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return models.Message{}, ErrConversationNotFound
		}
		return models.Message{}, err
	}

	participants, err := resolveParticipants(ctx, s.conversations, s.resolver, conversationID)
	if err != nil {
		return models.Message{}, err
	}

	ciphertext, scheme, err := s.selector.Encrypt(content, senderID, participants)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	stored, err := s.messages.Insert(ctx, models.MessageRecord{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        ciphertext,
		EncryptionType: scheme,
	})
	if err != nil {
		return models.Message{}, err
	}
	observability.IncMessageSent(string(scheme))

	// Preview stays plaintext even for e2ee messages. Known confidentiality
	// tradeoff, kept for the conversation list and server-side search.
	if err := s.conversations.UpdatePreview(ctx, conversationID, previewExcerpt(content), stored.CreatedAt); err != nil {
		return models.Message{}, err
	}

	// A new message makes the conversation visible again for everyone who
	// previously hid it.
	for _, p := range participants {
		if err := s.conversations.UnhideForUser(ctx, conversationID, p.UserID); err != nil {
			log.Printf("unhide conversation %s for %s: %v", conversationID, p.UserID, err)
		}
	}

	sender, err := s.resolver.FetchUserProfile(ctx, senderID)
	if err != nil {
		return models.Message{}, err
	}

	message := domainMessage(stored, content, &sender)
	s.broker.PublishMessage(conversationID, models.MessageEvent{Type: "message", Message: &message})
	for _, p := range participants {
		s.broker.PublishConversationUpdate(p.UserID, models.ConversationEvent{Type: "conversation_updated", ConversationID: conversationID})
	}
	return message, nil
}

// Fetch returns one page of messages in store order. Each record decrypts
// per its own tag; failures degrade that message to the fallback text
// instead of failing the page.
func (s *MessageService) Fetch(ctx context.Context, conversationID, readerID string) ([]models.Message, error) {
	participants, err := resolveParticipants(ctx, s.conversations, s.resolver, conversationID)
	if err != nil {
		return nil, err
	}

	records, err := s.messages.ListByConversation(ctx, conversationID, fetchPageSize, 0)
	if err != nil {
		return nil, err
	}

	result := make([]models.Message, 0, len(records))
	for _, record := range records {
		plaintext := s.selector.SafeDecrypt(record, readerID, participants)

		var sender *models.UserInfo
		if user, err := s.resolver.FetchUserProfile(ctx, record.SenderID); err == nil {
			sender = &user
		}
		result = append(result, domainMessage(record, plaintext, sender))
	}
	return result, nil
}

// MarkAsRead records a read receipt for the message.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID, userID string) error {
	return s.messages.MarkRead(ctx, messageID, userID)
}

// Delete soft-deletes a message. Only the sender may delete.
func (s *MessageService) Delete(ctx context.Context, messageID, userID string) error {
	record, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if record.SenderID != userID {
		return ErrUnauthorized
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return err
	}
	s.broker.PublishMessage(record.ConversationID, models.MessageEvent{Type: "message_deleted", MessageID: messageID})
	return nil
}

// Edit re-encrypts new content for an existing message. The conversation id
// is threaded through so scheme re-selection sees the participant set.
func (s *MessageService) Edit(ctx context.Context, conversationID, messageID, newContent, userID string) (models.Message, error) {
	if strings.TrimSpace(newContent) == "" {
		return models.Message{}, ErrInvalidContent
	}

	record, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, ErrMessageNotFound
		}
		return models.Message{}, err
	}
	if record.ConversationID != conversationID {
		return models.Message{}, ErrMessageNotFound
	}

	participants, err := resolveParticipants(ctx, s.conversations, s.resolver, conversationID)
	if err != nil {
		return models.Message{}, err
	}

	// Encrypt as the original sender so the stored pair context stays valid.
	ciphertext, scheme, err := s.selector.Encrypt(newContent, record.SenderID, participants)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, ciphertext, scheme)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, ErrMessageNotFound
		}
		return models.Message{}, err
	}

	sender, err := s.resolver.FetchUserProfile(ctx, updated.SenderID)
	if err != nil {
		return models.Message{}, err
	}

	message := domainMessage(updated, newContent, &sender)
	s.broker.PublishMessage(conversationID, models.MessageEvent{Type: "message_edited", Message: &message})
	return message, nil
}

func domainMessage(record models.MessageRecord, plaintext string, sender *models.UserInfo) models.Message {
	return models.Message{
		ID:             record.ID,
		ConversationID: record.ConversationID,
		SenderID:       record.SenderID,
		Content:        plaintext,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		IsEdited:       record.IsEdited,
		IsDeleted:      record.IsDeleted,
		EncryptionType: record.EncryptionType,
		Sender:         sender,
	}
}

func previewExcerpt(content string) string {
	if len(content) <= previewMaxLen {
		return content
	}
	return content[:previewMaxLen]
}
