package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

type conversationServiceFixture struct {
	conversations *mocks.ConversationStoreMock
	resolver      *mocks.ResolverMock
	service       *ConversationService
}

func newConversationServiceFixture() *conversationServiceFixture {
	conversations := new(mocks.ConversationStoreMock)
	resolver := new(mocks.ResolverMock)
	return &conversationServiceFixture{
		conversations: conversations,
		resolver:      resolver,
		service:       NewConversationService(conversations, resolver, realtime.NewBroker()),
	}
}

func TestCreateDirectConversation(t *testing.T) {
	f := newConversationServiceFixture()
	ctx := context.Background()

	f.conversations.On("Insert", mock.Anything, mock.MatchedBy(func(r models.ConversationRecord) bool {
		return !r.IsGroup && r.GroupName == nil && r.CreatedBy != nil && *r.CreatedBy == "alice"
	})).Return(models.ConversationRecord{ID: "conv-1", IsGroup: false}, nil).Once()
	f.conversations.On("AddParticipant", mock.Anything, "conv-1", "alice").Return(nil).Once()
	f.conversations.On("AddParticipant", mock.Anything, "conv-1", "bob").Return(nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", nil), nil).Once()

	name := "ignored for direct"
	conversation, err := f.service.Create(ctx, []string{"bob"}, "alice", &name)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conversation.ID)
	assert.False(t, conversation.IsGroup)
	assert.Len(t, conversation.Participants, 2)

	f.conversations.AssertExpectations(t)
	f.resolver.AssertExpectations(t)
}

func TestCreateGroupConversation(t *testing.T) {
	f := newConversationServiceFixture()
	ctx := context.Background()

	name := "weekend plans"
	f.conversations.On("Insert", mock.Anything, mock.MatchedBy(func(r models.ConversationRecord) bool {
		return r.IsGroup && r.GroupName != nil && *r.GroupName == name
	})).Return(models.ConversationRecord{ID: "conv-2", IsGroup: true, GroupName: &name}, nil).Once()
	f.conversations.On("AddParticipant", mock.Anything, "conv-2", mock.Anything).Return(nil).Times(3)
	f.conversations.On("ListParticipants", mock.Anything, "conv-2").Return([]string{"alice", "bob", "carol"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, mock.Anything).Return(userInfo("someone", nil), nil)

	conversation, err := f.service.Create(ctx, []string{"bob", "carol"}, "alice", &name)
	require.NoError(t, err)
	assert.True(t, conversation.IsGroup)

	f.conversations.AssertExpectations(t)
}

func TestCreateDeduplicatesParticipants(t *testing.T) {
	f := newConversationServiceFixture()

	// The creator listed among the participants collapses to one entry,
	// leaving a single member, which is not a conversation.
	_, err := f.service.Create(context.Background(), []string{"alice", "alice"}, "alice", nil)
	assert.ErrorIs(t, err, ErrInvalidParticipants)
	f.conversations.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestFetchForUser(t *testing.T) {
	f := newConversationServiceFixture()
	ctx := context.Background()

	f.conversations.On("ListForUser", mock.Anything, "alice").Return([]models.ConversationRecord{{ID: "conv-1"}}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.conversations.On("UnreadCount", mock.Anything, "conv-1", "alice").Return(3, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(userInfo("alice", nil), nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(userInfo("bob", nil), nil).Once()

	result, err := f.service.FetchForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 3, result[0].UnreadCount)
	assert.Len(t, result[0].Participants, 2)

	f.conversations.AssertExpectations(t)
}

func TestFetchForUserToleratesResolverOutage(t *testing.T) {
	f := newConversationServiceFixture()
	ctx := context.Background()

	f.conversations.On("ListForUser", mock.Anything, "alice").Return([]models.ConversationRecord{{ID: "conv-1"}}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.conversations.On("UnreadCount", mock.Anything, "conv-1", "alice").Return(0, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, mock.Anything).Return(models.UserInfo{}, assert.AnError)

	result, err := f.service.FetchForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, result, 1)
	for _, p := range result[0].Participants {
		assert.Nil(t, p.User)
	}
}

func TestAddParticipantsRequiresMembership(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()

	err := f.service.AddParticipants(context.Background(), "conv-1", []string{"dave"}, "carol")
	assert.ErrorIs(t, err, ErrUnauthorized)
	f.conversations.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddParticipantsUnknownConversation(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("ListParticipants", mock.Anything, "conv-x").Return([]string{}, nil).Once()

	err := f.service.AddParticipants(context.Background(), "conv-x", []string{"dave"}, "alice")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAddParticipantsEmptyRequest(t *testing.T) {
	f := newConversationServiceFixture()

	err := f.service.AddParticipants(context.Background(), "conv-1", nil, "alice")
	assert.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestAddParticipants(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.conversations.On("AddParticipant", mock.Anything, "conv-1", "carol").Return(nil).Once()

	err := f.service.AddParticipants(context.Background(), "conv-1", []string{"carol"}, "alice")
	require.NoError(t, err)
	f.conversations.AssertExpectations(t)
}

func TestLeaveDirectConversationDeletesForBoth(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("Get", mock.Anything, "conv-1").Return(models.ConversationRecord{ID: "conv-1"}, nil).Once()
	f.conversations.On("HideForUser", mock.Anything, "conv-1", "alice").Return(nil).Once()
	f.conversations.On("CountParticipants", mock.Anything, "conv-1").Return(2, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.conversations.On("Delete", mock.Anything, "conv-1").Return(nil).Once()

	err := f.service.Leave(context.Background(), "conv-1", "alice")
	require.NoError(t, err)
	f.conversations.AssertExpectations(t)
}

func TestLeaveGroupOnlyHides(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("Get", mock.Anything, "conv-2").Return(models.ConversationRecord{ID: "conv-2", IsGroup: true}, nil).Once()
	f.conversations.On("HideForUser", mock.Anything, "conv-2", "alice").Return(nil).Once()
	f.conversations.On("CountParticipants", mock.Anything, "conv-2").Return(3, nil).Once()

	err := f.service.Leave(context.Background(), "conv-2", "alice")
	require.NoError(t, err)
	f.conversations.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestLeaveIsIdempotent(t *testing.T) {
	f := newConversationServiceFixture()

	f.conversations.On("Get", mock.Anything, "conv-gone").Return(models.ConversationRecord{}, repositories.ErrConversationNotFound).Once()

	err := f.service.Leave(context.Background(), "conv-gone", "alice")
	require.NoError(t, err)
	f.conversations.AssertNotCalled(t, "HideForUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateSettingsMapsNotFound(t *testing.T) {
	f := newConversationServiceFixture()

	settings := models.ConversationSettings{Muted: true}
	f.conversations.On("UpdateSettings", mock.Anything, "conv-x", settings).Return(repositories.ErrConversationNotFound).Once()

	err := f.service.UpdateSettings(context.Background(), "conv-x", settings)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
