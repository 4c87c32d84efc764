package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// WebSocketHandler bridges broker subscriptions onto websocket connections.
type WebSocketHandler struct {
	broker        *Broker
	conversations repositories.ConversationStore
	identity      directory.Identity
}

// NewWebSocketHandler constructs a WebSocketHandler.
func NewWebSocketHandler(broker *Broker, conversations repositories.ConversationStore, identity directory.Identity) *WebSocketHandler {
	return &WebSocketHandler{broker: broker, conversations: conversations, identity: identity}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleMessages upgrades the connection and streams a conversation's
// message events until the client goes away. The broker registration is
// released when the read loop ends.
func (h *WebSocketHandler) HandleMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	ctx, span := otel.Tracer("messaging-service/realtime").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if !h.isParticipant(c.Request.Context(), conversationID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	var writeMu sync.Mutex
	token := h.broker.SubscribeToMessages(conversationID, func(event models.MessageEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(event); err != nil {
			observability.IncWSEvent("messages", "ws_error")
		}
	})

	observability.IncWSActive("messages")
	observability.IncWSEvent("messages", "ws_connect")
	connectedAt := time.Now()

	go h.readUntilClosed(ctx, conn, token, connectedAt)
}

// HandleConversations streams conversation-list updates for the
// authenticated user.
func (h *WebSocketHandler) HandleConversations(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/realtime").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	var writeMu sync.Mutex
	token := h.broker.SubscribeToConversations(userID, func(event models.ConversationEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(event); err != nil {
			observability.IncWSEvent("conversations", "ws_error")
		}
	})

	observability.IncWSActive("conversations")
	observability.IncWSEvent("conversations", "ws_connect")
	connectedAt := time.Now()

	go h.readUntilClosed(ctx, conn, token, connectedAt)
}

func (h *WebSocketHandler) readUntilClosed(ctx context.Context, conn *websocket.Conn, token models.SubscriptionToken, connectedAt time.Time) {
	kind := strings.SplitN(token.Channel, ":", 2)[0]
	defer func() {
		h.broker.Unsubscribe(token)
		observability.DecWSActive(kind)
		observability.IncWSEvent(kind, "ws_disconnect")

		var traceID string
		if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
			traceID = span.TraceID().String()
		}
		_ = observability.PublishEvent(ctx, "ws_events."+kind, observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload: map[string]interface{}{
				"channel":     token.Channel,
				"token_id":    token.ID,
				"duration_ms": time.Since(connectedAt).Milliseconds(),
			},
		}, observability.BuildHeaders("", traceID))
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(kind, "ws_error")
			}
			return
		}
	}
}

func (h *WebSocketHandler) authenticate(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid token")
	}
	return h.identity.ValidateToken(c.Request.Context(), parts[1])
}

func (h *WebSocketHandler) isParticipant(ctx context.Context, conversationID, userID string) bool {
	ids, err := h.conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		return false
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
