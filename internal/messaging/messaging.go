package messaging

import (
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/crypto"
	"messaging-service/internal/directory"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
)

// Messaging is the composition root for the subsystem. It assembles the
// stores, the ciphers and the business services into one object graph and
// exposes them as operation groups. Construct it once per process (or per
// test) and share it by reference; it performs no logic of its own.
type Messaging struct {
	Messages      *service.MessageService
	Conversations *service.ConversationService
	Realtime      *realtime.Broker
	Keys          *crypto.KeyStore

	// ConversationStore is exposed for collaborators that need raw
	// participant lookups, such as the websocket handshake.
	ConversationStore repositories.ConversationStore
}

// Deps carries the externally owned collaborators.
type Deps struct {
	DB           *sqlx.DB
	Resolver     directory.Resolver
	LegacySecret string
}

// New wires the full dependency graph: stores over the database, the hybrid
// cipher selector over a fresh keyring, the broker, and both services.
func New(deps Deps) *Messaging {
	messageRepo := repositories.NewMessageRepo(deps.DB)
	conversationRepo := repositories.NewConversationRepo(deps.DB)

	keys := crypto.NewKeyStore()
	selector := crypto.NewSelector(crypto.NewLegacyCipher(deps.LegacySecret), crypto.NewE2EECipher(keys), keys)

	broker := realtime.NewBroker()

	return &Messaging{
		Messages:          service.NewMessageService(messageRepo, conversationRepo, selector, deps.Resolver, broker),
		Conversations:     service.NewConversationService(conversationRepo, deps.Resolver, broker),
		Realtime:          broker,
		Keys:              keys,
		ConversationStore: conversationRepo,
	}
}

// NewWithStores builds the graph over explicit store implementations. Used
// by tests to substitute mocks without a database.
func NewWithStores(messages repositories.MessageStore, conversations repositories.ConversationStore, resolver directory.Resolver, legacySecret string) *Messaging {
	keys := crypto.NewKeyStore()
	selector := crypto.NewSelector(crypto.NewLegacyCipher(legacySecret), crypto.NewE2EECipher(keys), keys)
	broker := realtime.NewBroker()

	return &Messaging{
		Messages:          service.NewMessageService(messages, conversations, selector, resolver, broker),
		Conversations:     service.NewConversationService(conversations, resolver, broker),
		Realtime:          broker,
		Keys:              keys,
		ConversationStore: conversations,
	}
}
