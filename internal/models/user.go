package models

// UserInfo is the profile snapshot resolved from the user service. PublicKey
// is the user's published X25519 key, base64-encoded, or nil when the user
// has not enrolled for end-to-end encryption.
type UserInfo struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	PublicKey   *string `json:"public_key,omitempty"`
	Online      bool    `json:"online"`
}
