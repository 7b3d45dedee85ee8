package ports

import (
	"context"

	"arenahub/internal/core/domain"
)

// InitTokenGate issues and consumes single-use init tokens.
type InitTokenGate interface {
	Issue(ctx context.Context, deviceFingerprint, ip string) (*domain.InitToken, error)
	Validate(ctx context.Context, token string) error
	ValidateAndConsume(ctx context.Context, token string) error
}

// PresenceBroadcaster delivers a payload to every member of a channel and
// returns how many local members were queued.
type PresenceBroadcaster interface {
	Broadcast(ctx context.Context, key domain.ChannelKey, payload []byte) (int, error)
	Stats() domain.PresenceStats
}
