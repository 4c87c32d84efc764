package models

// SubscriptionToken identifies a live realtime registration. A token that is
// never passed back to Unsubscribe leaks its channel registration.
type SubscriptionToken struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// MessageEvent is delivered to message subscribers of a conversation.
type MessageEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
}

// ConversationEvent is delivered to conversation-list subscribers of a user.
type ConversationEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}
