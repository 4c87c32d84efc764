package directory

import (
	"context"

	"messaging-service/internal/models"
)

// Resolver looks up user profile snapshots from the user service.
type Resolver interface {
	FetchUserProfile(ctx context.Context, userID string) (models.UserInfo, error)
}

// Identity validates bearer tokens against the auth service and reports the
// authenticated user id.
type Identity interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}
