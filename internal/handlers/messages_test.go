package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/crypto"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/service"
)

type messageHandlerFixture struct {
	messages      *mocks.MessageStoreMock
	conversations *mocks.ConversationStoreMock
	resolver      *mocks.ResolverMock
	legacy        *crypto.LegacyCipher
	router        *gin.Engine
}

func newMessageHandlerFixture() *messageHandlerFixture {
	gin.SetMode(gin.TestMode)

	messages := new(mocks.MessageStoreMock)
	conversations := new(mocks.ConversationStoreMock)
	resolver := new(mocks.ResolverMock)

	keys := crypto.NewKeyStore()
	legacy := crypto.NewLegacyCipher("unit-test-secret")
	selector := crypto.NewSelector(legacy, crypto.NewE2EECipher(keys), keys)
	svc := service.NewMessageService(messages, conversations, selector, resolver, realtime.NewBroker())
	handler := NewMessageHandler(svc, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.GET("/conversations/:conversation_id/messages", handler.List)
	r.POST("/conversations/:conversation_id/messages", handler.Post)
	r.PUT("/conversations/:conversation_id/messages/:message_id", handler.Edit)
	r.DELETE("/conversations/:conversation_id/messages/:message_id", handler.Delete)
	r.POST("/conversations/:conversation_id/messages/:message_id/read", handler.MarkRead)

	return &messageHandlerFixture{
		messages:      messages,
		conversations: conversations,
		resolver:      resolver,
		legacy:        legacy,
		router:        r,
	}
}

func TestPostMessageSuccess(t *testing.T) {
	f := newMessageHandlerFixture()

	f.conversations.On("Get", mock.Anything, "conv-1").Return(models.ConversationRecord{ID: "conv-1"}, nil).Once()
	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, "alice").Return(models.UserInfo{ID: "alice", Username: "alice"}, nil)
	f.resolver.On("FetchUserProfile", mock.Anything, "bob").Return(models.UserInfo{ID: "bob", Username: "bob"}, nil)
	f.messages.On("Insert", mock.Anything, mock.Anything).Return(models.MessageRecord{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		CreatedAt:      time.Now().UTC(),
		EncryptionType: models.EncryptionLegacy,
	}, nil).Once()
	f.conversations.On("UpdatePreview", mock.Anything, "conv-1", "hello", mock.Anything).Return(nil).Once()
	f.conversations.On("UnhideForUser", mock.Anything, "conv-1", mock.Anything).Return(nil).Times(2)

	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "m1", resp.ID)
	assert.Equal(t, "hello", resp.Content)

	f.messages.AssertExpectations(t)
	f.conversations.AssertExpectations(t)
}

func TestPostMessageMissingContent(t *testing.T) {
	f := newMessageHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	f.messages.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestListMessagesSuccess(t *testing.T) {
	f := newMessageHandlerFixture()

	ciphertext, err := f.legacy.Encrypt("hi there")
	require.NoError(t, err)

	f.conversations.On("ListParticipants", mock.Anything, "conv-1").Return([]string{"alice", "bob"}, nil).Once()
	f.resolver.On("FetchUserProfile", mock.Anything, mock.Anything).Return(models.UserInfo{ID: "bob", Username: "bob"}, nil)
	f.messages.On("ListByConversation", mock.Anything, "conv-1", mock.Anything, mock.Anything).Return([]models.MessageRecord{
		{ID: "m1", ConversationID: "conv-1", SenderID: "bob", Content: ciphertext, EncryptionType: models.EncryptionLegacy},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hi there", resp.Messages[0].Content)

	f.messages.AssertExpectations(t)
}

func TestDeleteMessageForbiddenForNonSender(t *testing.T) {
	f := newMessageHandlerFixture()

	f.messages.On("Get", mock.Anything, "m1").Return(models.MessageRecord{
		ID: "m1", ConversationID: "conv-1", SenderID: "bob",
	}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/conv-1/messages/m1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.messages.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestMarkMessageRead(t *testing.T) {
	f := newMessageHandlerFixture()

	f.messages.On("MarkRead", mock.Anything, "m1", "alice").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages/m1/read", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	f.messages.AssertExpectations(t)
}
