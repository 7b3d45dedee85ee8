package ports

import (
	"context"

	"arenahub/internal/core/domain"
)

// UserAuthenticator resolves a bearer access token to an active user. Used by
// the HTTP authorization chain and the notification WebSocket gateway.
type UserAuthenticator interface {
	AuthenticateUser(ctx context.Context, accessToken string) (*domain.User, error)
}

// AdminAuthenticator resolves a bearer access token to an active admin.
type AdminAuthenticator interface {
	AuthenticateAdmin(ctx context.Context, accessToken string) (*domain.Admin, error)
}
