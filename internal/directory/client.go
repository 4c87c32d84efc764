package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"messaging-service/internal/models"
)

// ErrUserNotFound indicates the directory has no record of the user.
var ErrUserNotFound = errors.New("user not found")

// Client talks to the user service's internal JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchUserProfile retrieves a single user profile.
func (c *Client) FetchUserProfile(ctx context.Context, userID string) (models.UserInfo, error) {
	endpoint := c.baseURL + "/internal/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.UserInfo{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.UserInfo{}, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.UserInfo{}, fmt.Errorf("fetch user profile: unexpected status %d", resp.StatusCode)
	}

	var user models.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.UserInfo{}, fmt.Errorf("decode user profile: %w", err)
	}
	if user.ID == "" {
		return models.UserInfo{}, ErrUserNotFound
	}
	return user, nil
}

// ValidateToken verifies a bearer token and returns the user id it belongs to.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/tokens/validate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("invalid token")
	}

	var result struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if !result.Valid || result.UserID == "" {
		return "", errors.New("invalid token")
	}
	return result.UserID, nil
}

var _ Resolver = (*Client)(nil)
var _ Identity = (*Client)(nil)
