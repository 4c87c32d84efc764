package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/crypto"
)

func TestInitializeKeysReturnsPublicKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	keys := crypto.NewKeyStore()
	handler := NewKeyHandler(keys)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.POST("/keys/init", handler.Initialize)

	req := httptest.NewRequest(http.MethodPost, "/keys/init", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["public_key"])
	assert.True(t, keys.HasKeys("alice"))

	// Calling again returns the same key.
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/keys/init", nil))
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp2 map[string]string
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&resp2))
	assert.Equal(t, resp["public_key"], resp2["public_key"])
}
