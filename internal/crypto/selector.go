package crypto

import (
	"log"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// DecryptFallback is returned by SafeDecrypt whenever decryption fails. One
// corrupt or incompatible message must not abort rendering of a conversation.
const DecryptFallback = "Unable to decrypt message"

// Selector picks a scheme per outgoing message and dispatches decryption by
// the tag stored on the record, never by the current policy.
type Selector struct {
	legacy *LegacyCipher
	e2ee   *E2EECipher
	keys   *KeyStore
}

// NewSelector builds the hybrid selector over both ciphers.
func NewSelector(legacy *LegacyCipher, e2ee *E2EECipher, keys *KeyStore) *Selector {
	return &Selector{legacy: legacy, e2ee: e2ee, keys: keys}
}

// Choose applies the selection rule for a new message: exactly two
// participants, every non-sender key published, sender keypair initialized.
// Groups always fall back to legacy; E2EE fan-out is not implemented.
func (s *Selector) Choose(senderID string, participants []models.ConversationParticipant) models.EncryptionType {
	if len(participants) != 2 {
		return models.EncryptionLegacy
	}
	if !s.keys.HasKeys(senderID) {
		return models.EncryptionLegacy
	}
	for _, p := range participants {
		if p.UserID == senderID {
			continue
		}
		if p.User == nil || p.User.PublicKey == nil || *p.User.PublicKey == "" {
			return models.EncryptionLegacy
		}
	}
	return models.EncryptionE2EE
}

// Encrypt runs selection and seals plaintext, returning the ciphertext and
// the tag to persist with it.
func (s *Selector) Encrypt(plaintext, senderID string, participants []models.ConversationParticipant) (string, models.EncryptionType, error) {
	scheme := s.Choose(senderID, participants)
	if scheme == models.EncryptionLegacy {
		ciphertext, err := s.legacy.Encrypt(plaintext)
		return ciphertext, models.EncryptionLegacy, err
	}

	peer, ok := otherParticipant(participants, senderID)
	if !ok || peer.User == nil || peer.User.PublicKey == nil {
		// Eligibility already passed, so a missing key here is a logic
		// violation rather than a downgrade condition.
		return "", models.EncryptionUnknown, ErrRecipientKeyMissing
	}

	ciphertext, err := s.e2ee.Encrypt(plaintext, senderID, peer.UserID, *peer.User.PublicKey)
	if err != nil {
		return "", models.EncryptionUnknown, err
	}
	return ciphertext, models.EncryptionE2EE, nil
}

// Decrypt opens a stored record for the reader. Dispatch is tag-driven:
// changing key availability after the fact never changes how an existing
// record decrypts.
func (s *Selector) Decrypt(record models.MessageRecord, readerID string, participants []models.ConversationParticipant) (string, error) {
	switch record.EncryptionType {
	case models.EncryptionE2EE:
		peer, ok := otherParticipant(participants, readerID)
		if !ok || peer.User == nil || peer.User.PublicKey == nil {
			return "", ErrRecipientKeyMissing
		}
		return s.e2ee.Decrypt(record.Content, readerID, peer.UserID, *peer.User.PublicKey)
	case models.EncryptionLegacy:
		return s.legacy.Decrypt(record.Content)
	default:
		log.Printf("unknown encryption tag %q on message %s, trying legacy", record.EncryptionType, record.ID)
		return s.legacy.Decrypt(record.Content)
	}
}

// SafeDecrypt never fails: any decryption error degrades to the fixed
// fallback text for that one message.
func (s *Selector) SafeDecrypt(record models.MessageRecord, readerID string, participants []models.ConversationParticipant) string {
	plaintext, err := s.Decrypt(record, readerID, participants)
	if err != nil {
		log.Printf("decrypt failed for message %s (tag=%q): %v", record.ID, record.EncryptionType, err)
		observability.IncDecryptFailure(string(record.EncryptionType))
		return DecryptFallback
	}
	return plaintext
}

func otherParticipant(participants []models.ConversationParticipant, selfID string) (models.ConversationParticipant, bool) {
	for _, p := range participants {
		if p.UserID != selfID {
			return p, true
		}
	}
	return models.ConversationParticipant{}, false
}
