package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"arenahub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayMessage is the pub/sub wire format shared by all instances.
type RelayMessage struct {
	InstanceID string             `json:"instance_id"`
	Kind       domain.ChannelKind `json:"kind"`
	ChannelID  string             `json:"channel_id"`
	Payload    json.RawMessage    `json:"payload"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Relay publishes local broadcasts on a redis channel and delivers broadcasts
// from other instances to the local registry.
type Relay struct {
	client     *redis.Client
	channel    string
	instanceID string
	registry   *Registry
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRelay(client *redis.Client, channel string, registry *Registry, logger *zap.SugaredLogger) *Relay {
	return &Relay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		registry:   registry,
		logger:     logger,
	}
}

func (r *Relay) InstanceID() string { return r.instanceID }

// Publish implements Publisher.
func (r *Relay) Publish(ctx context.Context, key domain.ChannelKey, payload json.RawMessage) error {
	data, err := json.Marshal(RelayMessage{
		InstanceID: r.instanceID,
		Kind:       key.Kind,
		ChannelID:  key.ID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Start subscribes and begins delivering remote broadcasts. It returns once
// the subscription is confirmed by redis.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		return fmt.Errorf("relay already started")
	}

	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	r.pubsub = pubsub
	r.done = make(chan struct{})
	r.registry.SetPublisher(r)

	go func(ch <-chan *redis.Message, done chan struct{}) {
		defer close(done)
		for msg := range ch {
			r.handle([]byte(msg.Payload))
		}
	}(pubsub.Channel(), r.done)

	r.logger.Infow("presence relay started", "channel", r.channel, "instance_id", r.instanceID)
	return nil
}

// handle delivers one relayed broadcast locally. Messages this instance
// published were already delivered by Registry.Broadcast.
func (r *Relay) handle(data []byte) {
	var msg RelayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warnw("failed to unmarshal relay message", "error", err)
		return
	}
	if msg.InstanceID == r.instanceID {
		return
	}
	if !msg.Kind.Valid() || msg.ChannelID == "" {
		r.logger.Warnw("ignoring relay message for unknown channel", "kind", msg.Kind, "channel_id", msg.ChannelID)
		return
	}

	key := domain.ChannelKey{Kind: msg.Kind, ID: msg.ChannelID}
	if _, err := r.registry.Deliver(key, msg.Payload); err != nil {
		r.logger.Debugw("relay delivery skipped", "channel", key.String(), "error", err)
	}
}

// Stop unsubscribes and waits for the delivery goroutine.
func (r *Relay) Stop() error {
	r.mu.Lock()
	pubsub, done := r.pubsub, r.done
	r.pubsub = nil
	r.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
