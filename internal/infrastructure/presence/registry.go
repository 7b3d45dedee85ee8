package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/pkg/tracing"

	"go.uber.org/zap"
)

var ErrRegistryClosed = errors.New("presence registry is closed")

// Member is one live connection in a channel.
type Member interface {
	ID() string
	// Send queues frame without blocking and reports whether it was queued.
	Send(frame []byte) bool
	Close()
}

// Publisher forwards broadcasts to other instances.
type Publisher interface {
	Publish(ctx context.Context, key domain.ChannelKey, payload json.RawMessage) error
}

// Frame is what clients receive. Event follows the "<kind>_<id>" naming the
// web client subscribes to, with notifications addressed as "user_<id>".
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func EventName(key domain.ChannelKey) string {
	if key.Kind == domain.ChannelNotification {
		return "user_" + key.ID
	}
	return string(key.Kind) + "_" + key.ID
}

// Registry maps channels to their live members. Channels exist only while
// they have at least one member.
type Registry struct {
	mu       sync.RWMutex
	channels map[domain.ChannelKey]map[string]Member
	closed   bool

	publisher Publisher
	metrics   ports.PresenceMetrics
	logger    *zap.SugaredLogger
}

func NewRegistry(metrics ports.PresenceMetrics, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		channels: make(map[domain.ChannelKey]map[string]Member),
		metrics:  metrics,
		logger:   logger,
	}
}

// SetPublisher enables cross-instance delivery. Must be called before the
// registry serves traffic.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

func (r *Registry) Join(key domain.ChannelKey, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	members, ok := r.channels[key]
	if !ok {
		members = make(map[string]Member)
		r.channels[key] = members
	}
	members[m.ID()] = m
	return nil
}

// Leave removes m and drops the channel once it is empty. It reports whether
// m was a member.
func (r *Registry) Leave(key domain.ChannelKey, m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[key]
	if !ok {
		return false
	}
	if _, ok := members[m.ID()]; !ok {
		return false
	}
	delete(members, m.ID())
	if len(members) == 0 {
		delete(r.channels, key)
	}
	return true
}

func (r *Registry) HasChannel(key domain.ChannelKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[key]
	return ok
}

// Broadcast delivers payload to local members and, when a publisher is set,
// to every other instance. The count covers local members only. A publish
// failure is returned after local delivery has happened.
func (r *Registry) Broadcast(ctx context.Context, key domain.ChannelKey, payload []byte) (int, error) {
	ctx, span := tracing.TracePresenceBroadcast(ctx, string(key.Kind), key.ID)
	defer span.End()

	if !json.Valid(payload) {
		return 0, domain.ErrInvalidPayload
	}

	delivered, err := r.Deliver(key, payload)
	if err != nil {
		return 0, err
	}

	r.mu.RLock()
	publisher := r.publisher
	r.mu.RUnlock()
	if publisher != nil {
		if err := publisher.Publish(ctx, key, payload); err != nil {
			tracing.RecordError(ctx, err)
			return delivered, fmt.Errorf("%w: %v", domain.ErrRelayUnavailable, err)
		}
	}
	return delivered, nil
}

// Deliver fans payload out to local members only. Members whose queue is
// full miss the message.
func (r *Registry) Deliver(key domain.ChannelKey, payload []byte) (int, error) {
	frame, err := json.Marshal(Frame{Event: EventName(key), Data: payload})
	if err != nil {
		return 0, fmt.Errorf("encode frame: %w", err)
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrRegistryClosed
	}
	members := make([]Member, 0, len(r.channels[key]))
	for _, m := range r.channels[key] {
		members = append(members, m)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, m := range members {
		if m.Send(frame) {
			delivered++
			continue
		}
		r.metrics.MessageDropped(key.Kind)
		r.logger.Debugw("dropped presence message for slow member",
			"channel", key.String(),
			"member", m.ID(),
		)
	}
	r.metrics.MessageDelivered(key.Kind, delivered)
	return delivered, nil
}

func (r *Registry) Stats() domain.PresenceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.PresenceStats{
		Channels:    make(map[domain.ChannelKind]int, len(domain.ChannelKinds)),
		Connections: make(map[domain.ChannelKind]int, len(domain.ChannelKinds)),
	}
	for _, kind := range domain.ChannelKinds {
		stats.Channels[kind] = 0
		stats.Connections[kind] = 0
	}
	for key, members := range r.channels {
		stats.Channels[key.Kind]++
		stats.Connections[key.Kind] += len(members)
	}
	return stats
}

// Close disconnects every member and rejects further joins.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	channels := r.channels
	r.channels = make(map[domain.ChannelKey]map[string]Member)
	r.mu.Unlock()

	closedMembers := 0
	for _, members := range channels {
		for _, m := range members {
			m.Close()
			closedMembers++
		}
	}
	r.logger.Infow("presence registry closed", "members", closedMembers)
}
