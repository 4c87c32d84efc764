package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Insert(ctx context.Context, record models.MessageRecord) (models.MessageRecord, error) {
	args := m.Called(ctx, record)
	var stored models.MessageRecord
	if val := args.Get(0); val != nil {
		stored = val.(models.MessageRecord)
	}
	return stored, args.Error(1)
}

func (m *MessageStoreMock) Get(ctx context.Context, messageID string) (models.MessageRecord, error) {
	args := m.Called(ctx, messageID)
	var record models.MessageRecord
	if val := args.Get(0); val != nil {
		record = val.(models.MessageRecord)
	}
	return record, args.Error(1)
}

func (m *MessageStoreMock) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.MessageRecord, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	var records []models.MessageRecord
	if val := args.Get(0); val != nil {
		records = val.([]models.MessageRecord)
	}
	return records, args.Error(1)
}

func (m *MessageStoreMock) UpdateContent(ctx context.Context, messageID, content string, encryptionType models.EncryptionType) (models.MessageRecord, error) {
	args := m.Called(ctx, messageID, content, encryptionType)
	var record models.MessageRecord
	if val := args.Get(0); val != nil {
		record = val.(models.MessageRecord)
	}
	return record, args.Error(1)
}

func (m *MessageStoreMock) SoftDelete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageStoreMock) MarkRead(ctx context.Context, messageID, userID string) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

type ConversationStoreMock struct {
	mock.Mock
}

func (m *ConversationStoreMock) Insert(ctx context.Context, record models.ConversationRecord) (models.ConversationRecord, error) {
	args := m.Called(ctx, record)
	var stored models.ConversationRecord
	if val := args.Get(0); val != nil {
		stored = val.(models.ConversationRecord)
	}
	return stored, args.Error(1)
}

func (m *ConversationStoreMock) Get(ctx context.Context, conversationID string) (models.ConversationRecord, error) {
	args := m.Called(ctx, conversationID)
	var record models.ConversationRecord
	if val := args.Get(0); val != nil {
		record = val.(models.ConversationRecord)
	}
	return record, args.Error(1)
}

func (m *ConversationStoreMock) ListForUser(ctx context.Context, userID string) ([]models.ConversationRecord, error) {
	args := m.Called(ctx, userID)
	var records []models.ConversationRecord
	if val := args.Get(0); val != nil {
		records = val.([]models.ConversationRecord)
	}
	return records, args.Error(1)
}

func (m *ConversationStoreMock) Delete(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ConversationStoreMock) AddParticipant(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationStoreMock) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationStoreMock) ListParticipants(ctx context.Context, conversationID string) ([]string, error) {
	args := m.Called(ctx, conversationID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *ConversationStoreMock) CountParticipants(ctx context.Context, conversationID string) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *ConversationStoreMock) HideForUser(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationStoreMock) UnhideForUser(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationStoreMock) UpdatePreview(ctx context.Context, conversationID, preview string, at time.Time) error {
	args := m.Called(ctx, conversationID, preview, at)
	return args.Error(0)
}

func (m *ConversationStoreMock) UpdateSettings(ctx context.Context, conversationID string, settings models.ConversationSettings) error {
	args := m.Called(ctx, conversationID, settings)
	return args.Error(0)
}

func (m *ConversationStoreMock) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) FetchUserProfile(ctx context.Context, userID string) (models.UserInfo, error) {
	args := m.Called(ctx, userID)
	var info models.UserInfo
	if val := args.Get(0); val != nil {
		info = val.(models.UserInfo)
	}
	return info, args.Error(1)
}

type IdentityMock struct {
	mock.Mock
}

func (m *IdentityMock) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

var _ repositories.MessageStore = (*MessageStoreMock)(nil)
var _ repositories.ConversationStore = (*ConversationStoreMock)(nil)
var _ directory.Resolver = (*ResolverMock)(nil)
var _ directory.Identity = (*IdentityMock)(nil)
