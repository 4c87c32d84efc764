package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/crypto"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

type messageServiceFixture struct {
	messages      *mocks.MessageStoreMock
	conversations *mocks.ConversationStoreMock
	resolver      *mocks.ResolverMock
	keys          *crypto.KeyStore
	legacy        *crypto.LegacyCipher
	service       *MessageService
}

func newMessageServiceFixture() *messageServiceFixture {
	messages := new(mocks.MessageStoreMock)
	conversations := new(mocks.ConversationStoreMock)
	resolver := new(mocks.ResolverMock)

	keys := crypto.NewKeyStore()
	legacy := crypto.NewLegacyCipher("unit-test-secret")
	selector := crypto.NewSelector(legacy, crypto.NewE2EECipher(keys), keys)

	return &messageServiceFixture{
		messages:      messages,
		conversations: conversations,
		resolver:      resolver,
		keys:          keys,
		legacy:        legacy,
		service:       NewMessageService(messages, conversations, selector, resolver, realtime.NewBroker()),
	}
}

func userInfo(id string, publicKey *string) models.UserInfo {
	return models.UserInfo{ID: id, Username: id, PublicKey: publicKey}
}

func TestSendLegacyMessage(t *testing.T) {
	f := newMessageServiceFixture()
	ctx := context.Background()

	f.conversations.On("Get", mock.Anything, "conv-1").Return(models.ConversationRecord{ID: "conv-1"}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", nil), nil)

	f.messages.On("Insert", mock.Anything, mock.MatchedBy(func(r models.MessageRecord) bool {
		return r.ConversationID == "conv-1" &&
			r.SenderID == "alice" &&
			r.EncryptionType == models.EncryptionLegacy &&
			r.Content != "hello"
	})).Return(models.MessageRecord{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		Content:        "ciphertext",
		CreatedAt:      time.Now().UTC(),
		EncryptionType: models.EncryptionLegacy,
	}, nil).Once()
	f.conversations.On("UpdatePreview", mock.Anything, "conv-1", "hello", mock.Anything).Return(nil).Once()
	f.conversations.On("UnhideForUser", mock.Anything, "conv-1", "alice").Return(nil).Once()
	f.conversations.On("UnhideForUser", mock.Anything, "conv-1", "bob").Return(nil).Once()

	message, err := f.service.Send(ctx, "conv-1", "hello", "alice")
	require.NoError(t, err)
	assert.Equal(t, "m1", message.ID)
	assert.Equal(t, "hello", message.Content)
	assert.Equal(t, models.EncryptionLegacy, message.EncryptionType)
	require.NotNil(t, message.Sender)
	assert.Equal(t, "alice", message.Sender.ID)

	f.messages.AssertExpectations(t)
	f.conversations.AssertExpectations(t)
}

func TestSendE2EEMessageForEligiblePair(t *testing.T) {
	f := newMessageServiceFixture()
	ctx := context.Background()

	_, err := f.keys.Initialize("alice")
	require.NoError(t, err)
	_, err = f.keys.Initialize("bob")
	require.NoError(t, err)
	bobPub, _ := f.keys.PublicKey("bob")

	f.conversations.On("Get", mock.Anything, "conv-1").Return(models.ConversationRecord{ID: "conv-1"}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", &bobPub), nil)

	f.messages.On("Insert", mock.Anything, mock.MatchedBy(func(r models.MessageRecord) bool {
		return r.EncryptionType == models.EncryptionE2EE
	})).Return(models.MessageRecord{
		ID:             "m2",
		ConversationID: "conv-1",
		SenderID:       "alice",
		CreatedAt:      time.Now().UTC(),
		EncryptionType: models.EncryptionE2EE,
	}, nil).Once()
	f.conversations.On("UpdatePreview", mock.Anything, "conv-1", "secret", mock.Anything).Return(nil).Once()
	f.conversations.On("UnhideForUser", mock.Anything, "conv-1", mock.Anything).Return(nil).Times(2)

	message, err := f.service.Send(ctx, "conv-1", "secret", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.EncryptionE2EE, message.EncryptionType)

	f.messages.AssertExpectations(t)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	f := newMessageServiceFixture()

	_, err := f.service.Send(context.Background(), "conv-1", "   ", "alice")
	assert.ErrorIs(t, err, ErrInvalidContent)
	f.messages.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSendUnknownConversation(t *testing.T) {
	f := newMessageServiceFixture()

	f.conversations.On("Get", mock.Anything, "conv-x").Return(models.ConversationRecord{}, repositories.ErrConversationNotFound).Once()

	_, err := f.service.Send(context.Background(), "conv-x", "hello", "alice")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendEncryptionFailureDoesNotPersist(t *testing.T) {
	f := newMessageServiceFixture()
	ctx := context.Background()

	_, err := f.keys.Initialize("alice")
	require.NoError(t, err)
	badKey := "%%%not-base64%%%"

	f.conversations.On("Get", mock.Anything, "conv-1").Return(models.ConversationRecord{ID: "conv-1"}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", &badKey), nil)

	_, err = f.service.Send(ctx, "conv-1", "hello", "alice")
	assert.ErrorIs(t, err, ErrEncryptionFailed)

	f.messages.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.conversations.AssertNotCalled(t, "UpdatePreview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchDegradesUndecryptableMessages(t *testing.T) {
	f := newMessageServiceFixture()
	ctx := context.Background()

	good, err := f.legacy.Encrypt("readable")
	require.NoError(t, err)

	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", nil), nil)

	f.messages.On("ListByConversation", mock.Anything, "conv-1", fetchPageSize, 0).Return([]models.MessageRecord{
		{ID: "m1", ConversationID: "conv-1", SenderID: "alice", Content: good, EncryptionType: models.EncryptionLegacy},
		{ID: "m2", ConversationID: "conv-1", SenderID: "bob", Content: "garbage", EncryptionType: models.EncryptionLegacy},
	}, nil).Once()

	result, err := f.service.Fetch(ctx, "conv-1", "bob")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "readable", result[0].Content)
	assert.Equal(t, crypto.DecryptFallback, result[1].Content)

	f.messages.AssertExpectations(t)
}

func TestDeleteRequiresSender(t *testing.T) {
	f := newMessageServiceFixture()

	f.messages.On("Get", mock.Anything, "m1").Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-1", SenderID: "bob",
	}, nil).Once()

	err := f.service.Delete(context.Background(), "m1", "alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
	f.messages.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDeleteBySender(t *testing.T) {
	f := newMessageServiceFixture()

	f.messages.On("Get", mock.Anything, "m1").Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-1", SenderID: "alice",
	}, nil).Once()
	f.messages.On("SoftDelete", mock.Anything, "m1").Return(nil).Once()

	err := f.service.Delete(context.Background(), "m1", "alice")
	require.NoError(t, err)
	f.messages.AssertExpectations(t)
}

func TestEditRejectsConversationMismatch(t *testing.T) {
	f := newMessageServiceFixture()

	f.messages.On("Get", mock.Anything, "m1").Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-other", SenderID: "alice",
	}, nil).Once()

	_, err := f.service.Edit(context.Background(), "conv-1", "m1", "updated", "alice")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	f.messages.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditReencryptsWithCurrentSelection(t *testing.T) {
	f := newMessageServiceFixture()
	ctx := context.Background()

	f.messages.On("Get", mock.Anything, "m1").Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-1", SenderID: "alice", EncryptionType: models.EncryptionLegacy,
	}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", nil), nil)

	f.messages.On("UpdateContent", mock.Anything, "m1", mock.Anything, models.EncryptionLegacy).Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-1", SenderID: "alice", IsEdited: true, EncryptionType: models.EncryptionLegacy,
	}, nil).Once()

	message, err := f.service.Edit(ctx, "conv-1", "m1", "updated", "alice")
	require.NoError(t, err)
	assert.True(t, message.IsEdited)
	assert.Equal(t, "updated", message.Content)

	f.messages.AssertExpectations(t)
}

func TestMarkAsReadPassesThrough(t *testing.T) {
	f := newMessageServiceFixture()

	f.messages.On("MarkRead", mock.Anything, "m1", "bob").Return(nil).Once()

	require.NoError(t, f.service.MarkAsRead(context.Background(), "m1", "bob"))
	f.messages.AssertExpectations(t)
}
