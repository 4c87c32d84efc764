package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

var x25519Curve = ecdh.X25519()

// EncryptionKeys is an ephemeral keypair for one user. It is never persisted
// by this subsystem; durable key storage belongs to an external collaborator.
type EncryptionKeys struct {
	UserID         string
	ConversationID string
	PublicKey      []byte
	private        *ecdh.PrivateKey
}

// KeyStore is the in-memory keyring of local E2EE keypairs. All methods are
// safe for concurrent use.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]*EncryptionKeys
}

// NewKeyStore creates an empty keyring.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]*EncryptionKeys)}
}

// Initialize generates an X25519 keypair for the user. Calling it again for
// the same user returns the existing pair.
func (s *KeyStore) Initialize(userID string) (*EncryptionKeys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.keys[userID]; ok {
		return existing, nil
	}

	private, err := x25519Curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate X25519 keypair: %w", err)
	}

	keys := &EncryptionKeys{
		UserID:    userID,
		PublicKey: private.PublicKey().Bytes(),
		private:   private,
	}
	s.keys[userID] = keys
	return keys, nil
}

// HasKeys reports whether the user's keypair is initialized.
func (s *KeyStore) HasKeys(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[userID]
	return ok
}

// PublicKey returns the user's public key, base64-encoded.
func (s *KeyStore) PublicKey(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.keys[userID]
	if !ok {
		return "", false
	}
	return base64.StdEncoding.EncodeToString(keys.PublicKey), true
}

func (s *KeyStore) privateKey(userID string) (*ecdh.PrivateKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.keys[userID]
	if !ok {
		return nil, false
	}
	return keys.private, true
}
