package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
)

// ConversationHandler exposes conversation operations over HTTP. All
// business rules live in the service; this layer parses and maps errors.
type ConversationHandler struct {
	conversations *service.ConversationService
	audit         *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations *service.ConversationService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, audit: audit}
}

// List returns the conversations visible to the authenticated user.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := userIDFromContext(c)

	conversations, err := h.conversations.FetchForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Create starts a new conversation with the given participants.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		ParticipantIDs []string `json:"participant_ids" binding:"required"`
		Name           *string  `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := userIDFromContext(c)
	conversation, err := h.conversations.Create(c.Request.Context(), req.ParticipantIDs, userID, req.Name)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not create conversation"})
		return
	}

	h.audit.Emit(c.Request.Context(), "conversation_created", conversation.ID, requestIDFromContext(c), auditUserID(c))
	c.JSON(http.StatusCreated, conversation)
}

// Leave removes the conversation from the caller's view. For a direct
// conversation this deletes the thread for both sides.
func (h *ConversationHandler) Leave(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := userIDFromContext(c)

	if err := h.conversations.Leave(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not leave conversation"})
		return
	}

	h.audit.Emit(c.Request.Context(), "conversation_left", conversationID, requestIDFromContext(c), auditUserID(c))
	c.Status(http.StatusNoContent)
}

// AddParticipants adds members to an existing conversation.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := userIDFromContext(c)
	if err := h.conversations.AddParticipants(c.Request.Context(), conversationID, req.UserIDs, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not add participants"})
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateSettings stores the conversation settings document.
func (h *ConversationHandler) UpdateSettings(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var settings models.ConversationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.conversations.UpdateSettings(c.Request.Context(), conversationID, settings); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not update settings"})
		return
	}

	c.Status(http.StatusNoContent)
}
