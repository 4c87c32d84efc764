package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/crypto"
)

// KeyHandler lets a user enroll for end-to-end encryption by initializing a
// local keypair. The public half is returned for publication to the user
// directory; the private half never leaves the keyring.
type KeyHandler struct {
	keys *crypto.KeyStore
}

// NewKeyHandler builds a KeyHandler.
func NewKeyHandler(keys *crypto.KeyStore) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// Initialize generates (or returns) the caller's keypair.
func (h *KeyHandler) Initialize(c *gin.Context) {
	userID := userIDFromContext(c)

	if _, err := h.keys.Initialize(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not initialize keys"})
		return
	}

	publicKey, _ := h.keys.PublicKey(userID)
	c.JSON(http.StatusOK, gin.H{"public_key": publicKey})
}
