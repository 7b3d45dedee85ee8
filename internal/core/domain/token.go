package domain

import "time"

// Audience separates player tokens from admin tokens. Each audience is
// signed with its own secret.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair is what a successful login hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClaims is the verified content of an access or refresh token.
type TokenClaims struct {
	Subject   string
	Audience  Audience
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}
