package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
)

// MessageHandler exposes message operations over HTTP.
type MessageHandler struct {
	messages *service.MessageService
	audit    *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages *service.MessageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, audit: audit}
}

// List returns a page of decrypted messages for the conversation.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := userIDFromContext(c)

	messages, err := h.messages.Fetch(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Post encrypts and stores a new message.
func (h *MessageHandler) Post(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := userIDFromContext(c)
	message, err := h.messages.Send(c.Request.Context(), conversationID, req.Content, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to store message"})
		return
	}

	h.audit.Emit(c.Request.Context(), "message_sent", message.ID, requestIDFromContext(c), auditUserID(c))
	c.JSON(http.StatusCreated, message)
}

// Edit replaces a message's content, re-running scheme selection.
func (h *MessageHandler) Edit(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	messageID := c.Param("message_id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := userIDFromContext(c)
	message, err := h.messages.Edit(c.Request.Context(), conversationID, messageID, req.Content, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to edit message"})
		return
	}

	c.JSON(http.StatusOK, message)
}

// Delete soft-deletes a message.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := userIDFromContext(c)

	if err := h.messages.Delete(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not delete message"})
		return
	}

	h.audit.Emit(c.Request.Context(), "message_deleted", messageID, requestIDFromContext(c), auditUserID(c))
	c.Status(http.StatusNoContent)
}

// MarkRead records a read receipt for the caller.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := userIDFromContext(c)

	if err := h.messages.MarkAsRead(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not mark message read"})
		return
	}

	c.Status(http.StatusNoContent)
}
