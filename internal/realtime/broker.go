package realtime

import (
	"sync"

	"github.com/google/uuid"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// MessageHandler receives events for one conversation's message channel.
type MessageHandler func(models.MessageEvent)

// ConversationHandler receives conversation-list updates for one user.
type ConversationHandler func(models.ConversationEvent)

// Broker is the realtime registration and fan-out primitive. Subscriptions
// stay registered until Unsubscribe is called with their token; delivery
// order across a token is not guaranteed, consumers re-order by timestamp
// when they need to.
type Broker struct {
	mu               sync.RWMutex
	messageSubs      map[string]map[string]MessageHandler
	conversationSubs map[string]map[string]ConversationHandler
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		messageSubs:      make(map[string]map[string]MessageHandler),
		conversationSubs: make(map[string]map[string]ConversationHandler),
	}
}

// SubscribeToMessages registers a handler for a conversation's messages.
func (b *Broker) SubscribeToMessages(conversationID string, fn MessageHandler) models.SubscriptionToken {
	token := models.SubscriptionToken{ID: uuid.NewString(), Channel: "messages:" + conversationID}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.messageSubs[conversationID]; !ok {
		b.messageSubs[conversationID] = make(map[string]MessageHandler)
	}
	b.messageSubs[conversationID][token.ID] = fn
	observability.IncSubscriptions("messages")
	return token
}

// SubscribeToConversations registers a handler for a user's conversation list.
func (b *Broker) SubscribeToConversations(userID string, fn ConversationHandler) models.SubscriptionToken {
	token := models.SubscriptionToken{ID: uuid.NewString(), Channel: "conversations:" + userID}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conversationSubs[userID]; !ok {
		b.conversationSubs[userID] = make(map[string]ConversationHandler)
	}
	b.conversationSubs[userID][token.ID] = fn
	observability.IncSubscriptions("conversations")
	return token
}

// Unsubscribe releases a registration. Unknown tokens are ignored.
func (b *Broker) Unsubscribe(token models.SubscriptionToken) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, handlers := range b.messageSubs {
		if _, ok := handlers[token.ID]; ok {
			delete(handlers, token.ID)
			if len(handlers) == 0 {
				delete(b.messageSubs, key)
			}
			observability.DecSubscriptions("messages")
			return
		}
	}
	for key, handlers := range b.conversationSubs {
		if _, ok := handlers[token.ID]; ok {
			delete(handlers, token.ID)
			if len(handlers) == 0 {
				delete(b.conversationSubs, key)
			}
			observability.DecSubscriptions("conversations")
			return
		}
	}
}

// PublishMessage fans an event out to the conversation's subscribers.
func (b *Broker) PublishMessage(conversationID string, event models.MessageEvent) {
	b.mu.RLock()
	handlers := make([]MessageHandler, 0, len(b.messageSubs[conversationID]))
	for _, fn := range b.messageSubs[conversationID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}

// PublishConversationUpdate fans an event out to the user's subscribers.
func (b *Broker) PublishConversationUpdate(userID string, event models.ConversationEvent) {
	b.mu.RLock()
	handlers := make([]ConversationHandler, 0, len(b.conversationSubs[userID]))
	for _, fn := range b.conversationSubs[userID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}
