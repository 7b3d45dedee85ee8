package ports

import "arenahub/internal/core/domain"

// AuthMetrics is implemented by the prometheus collector.
type AuthMetrics interface {
	InitTokenIssued(store string)
	InitTokenConsumed(store string)
	InitTokenRejected()
	InitTokenStoreError(op string)
	InitTokenFallbackStats(total, active, expired int)
	InitTokenBreakerState(state string)
	AuthAttempt(operation string, audience domain.Audience, outcome string)
}

type PresenceMetrics interface {
	ConnectionOpened(kind domain.ChannelKind)
	ConnectionClosed(kind domain.ChannelKind)
	MessageDelivered(kind domain.ChannelKind, members int)
	MessageDropped(kind domain.ChannelKind)
}
