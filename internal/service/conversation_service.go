package service

import (
	"context"
	"errors"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

// ConversationService orchestrates conversation lifecycle operations. Like
// MessageService it is a stateless orchestrator over injected dependencies.
type ConversationService struct {
	conversations repositories.ConversationStore
	resolver      directory.Resolver
	broker        *realtime.Broker
}

// NewConversationService constructs a ConversationService.
func NewConversationService(conversations repositories.ConversationStore, resolver directory.Resolver, broker *realtime.Broker) *ConversationService {
	return &ConversationService{conversations: conversations, resolver: resolver, broker: broker}
}

// Create persists a conversation and its members. isGroup is decided once,
// here, from the participant count. Members are added sequentially and the
// participant list is re-read afterwards so the returned set reflects what
// the store accepted, not what was requested.
func (s *ConversationService) Create(ctx context.Context, participantIDs []string, creatorID string, name *string) (models.Conversation, error) {
	ids := dedupe(append([]string{creatorID}, participantIDs...))
	if len(ids) < 2 {
		return models.Conversation{}, ErrInvalidParticipants
	}

	isGroup := len(ids) > 2
	record := models.ConversationRecord{
		IsGroup:   isGroup,
		CreatedBy: &creatorID,
	}
	if isGroup {
		record.GroupName = name
	}

	stored, err := s.conversations.Insert(ctx, record)
	if err != nil {
		return models.Conversation{}, err
	}

	for _, id := range ids {
		if err := s.conversations.AddParticipant(ctx, stored.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	participants, err := resolveParticipants(ctx, s.conversations, s.resolver, stored.ID)
	if err != nil {
		return models.Conversation{}, err
	}

	for _, id := range ids {
		s.broker.PublishConversationUpdate(id, models.ConversationEvent{Type: "conversation_created", ConversationID: stored.ID})
	}

	return models.Conversation{ConversationRecord: stored, Participants: participants}, nil
}

// FetchForUser lists the user's visible conversations with resolved
// participants and unread counts. One participant resolution per
// conversation; ordering follows the store.
func (s *ConversationService) FetchForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	records, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.Conversation, 0, len(records))
	for _, record := range records {
		participants, err := resolveParticipants(ctx, s.conversations, s.resolver, record.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.conversations.UnreadCount(ctx, record.ID, userID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.Conversation{
			ConversationRecord: record,
			Participants:       participants,
			UnreadCount:        unread,
		})
	}
	return result, nil
}

// AddParticipants adds members to an existing conversation. The requester
// must already be a participant.
func (s *ConversationService) AddParticipants(ctx context.Context, conversationID string, userIDs []string, requesterID string) error {
	if len(userIDs) == 0 {
		return ErrInvalidParticipants
	}

	existing, err := s.conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return ErrConversationNotFound
	}
	if !contains(existing, requesterID) {
		return ErrUnauthorized
	}

	for _, id := range userIDs {
		if err := s.conversations.AddParticipant(ctx, conversationID, id); err != nil {
			return err
		}
		s.broker.PublishConversationUpdate(id, models.ConversationEvent{Type: "conversation_updated", ConversationID: conversationID})
	}
	return nil
}

// Leave hides the conversation for the user, then re-reads the participant
// count. A direct conversation (exactly two participants) is hard-deleted
// for everyone regardless of which side leaves; groups are only hidden for
// the leaving user. Calling Leave twice is a no-op the second time.
func (s *ConversationService) Leave(ctx context.Context, conversationID, userID string) error {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			// Already gone; leave is idempotent.
			return nil
		}
		return err
	}

	if err := s.conversations.HideForUser(ctx, conversationID, userID); err != nil {
		return err
	}

	count, err := s.conversations.CountParticipants(ctx, conversationID)
	if err != nil {
		return err
	}
	if count == 2 {
		participants, err := s.conversations.ListParticipants(ctx, conversationID)
		if err != nil {
			return err
		}
		if err := s.conversations.Delete(ctx, conversationID); err != nil {
			return err
		}
		for _, id := range participants {
			s.broker.PublishConversationUpdate(id, models.ConversationEvent{Type: "conversation_deleted", ConversationID: conversationID})
		}
	}
	return nil
}

// UpdateSettings stores the conversation's settings document.
func (s *ConversationService) UpdateSettings(ctx context.Context, conversationID string, settings models.ConversationSettings) error {
	err := s.conversations.UpdateSettings(ctx, conversationID, settings)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return ErrConversationNotFound
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
