package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sort"

	"golang.org/x/crypto/hkdf"
)

// E2EECipher implements the asymmetric scheme for two-party conversations:
// X25519 ECDH, HKDF-SHA256 session key, AES-256-GCM payload. The HKDF info
// binds the sorted pair of user ids so either party derives the same key.
type E2EECipher struct {
	keys *KeyStore
}

// NewE2EECipher builds the cipher over the local keyring.
func NewE2EECipher(keys *KeyStore) *E2EECipher {
	return &E2EECipher{keys: keys}
}

// Encrypt seals plaintext for the pair (localUserID, peerUserID) using the
// local private key and the peer's published public key.
func (c *E2EECipher) Encrypt(plaintext, localUserID, peerUserID string, peerPublicKey string) (string, error) {
	sessionKey, err := c.sessionKey(localUserID, peerUserID, peerPublicKey)
	if err != nil {
		return "", err
	}

	aead, err := newGCM(sessionKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload sealed by either member of the pair.
func (c *E2EECipher) Decrypt(encoded, localUserID, peerUserID string, peerPublicKey string) (string, error) {
	sessionKey, err := c.sessionKey(localUserID, peerUserID, peerPublicKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := newGCM(sessionKey)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(raw))
	}

	plaintext, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt ciphertext: %w", err)
	}
	return string(plaintext), nil
}

func (c *E2EECipher) sessionKey(localUserID, peerUserID, peerPublicKey string) ([]byte, error) {
	private, ok := c.keys.privateKey(localUserID)
	if !ok {
		return nil, ErrUserNotAuthenticated
	}
	if peerPublicKey == "" {
		return nil, ErrRecipientKeyMissing
	}

	peerRaw, err := base64.StdEncoding.DecodeString(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode peer public key: %w", err)
	}
	peer, err := x25519Curve.NewPublicKey(peerRaw)
	if err != nil {
		return nil, fmt.Errorf("parse peer public key: %w", err)
	}

	shared, err := private.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("compute shared secret: %w", err)
	}

	pair := []string{localUserID, peerUserID}
	sort.Strings(pair)
	info := "messaging e2ee v1|" + pair[0] + "|" + pair[1]

	sessionKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(info)), sessionKey); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return sessionKey, nil
}
