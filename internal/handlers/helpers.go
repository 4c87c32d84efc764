package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/service"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	if val, ok := c.Get("userID"); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

func auditUserID(c *gin.Context) *string {
	if id := userIDFromContext(c); id != "" {
		return &id
	}
	return nil
}

// statusForError maps business errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrMessageNotFound), errors.Is(err, service.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidContent), errors.Is(err, service.ErrInvalidParticipants):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConversationExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
