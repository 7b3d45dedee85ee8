package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"arenahub/internal/core/domain"
	"arenahub/internal/infrastructure/monitoring"
	"arenahub/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMember struct {
	id       string
	capacity int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeMember(id string, capacity int) *fakeMember {
	return &fakeMember{id: id, capacity: capacity}
}

func (m *fakeMember) ID() string { return m.id }

func (m *fakeMember) Send(frame []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.frames) >= m.capacity {
		return false
	}
	m.frames = append(m.frames, frame)
	return true
}

func (m *fakeMember) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *fakeMember) received() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, 0, len(m.frames))
	for _, raw := range m.frames {
		var f Frame
		_ = json.Unmarshal(raw, &f)
		out = append(out, f)
	}
	return out
}

type fakePublisher struct {
	err       error
	published []domain.ChannelKey
}

func (p *fakePublisher) Publish(_ context.Context, key domain.ChannelKey, _ json.RawMessage) error {
	p.published = append(p.published, key)
	return p.err
}

func newTestRegistry() *Registry {
	return NewRegistry(monitoring.NewPrometheusCollector(prometheus.NewRegistry()), logger.NewNop())
}

var streamKey = domain.ChannelKey{Kind: domain.ChannelStream, ID: "s-1"}

func TestRegistry_JoinLeaveRemovesEmptyChannel(t *testing.T) {
	r := newTestRegistry()
	a, b := newFakeMember("a", 4), newFakeMember("b", 4)

	require.NoError(t, r.Join(streamKey, a))
	require.NoError(t, r.Join(streamKey, b))
	assert.True(t, r.HasChannel(streamKey))

	assert.True(t, r.Leave(streamKey, a))
	assert.True(t, r.HasChannel(streamKey))
	assert.False(t, r.Leave(streamKey, a))

	assert.True(t, r.Leave(streamKey, b))
	assert.False(t, r.HasChannel(streamKey))
	assert.Equal(t, 0, r.Stats().Channels[domain.ChannelStream])
}

func TestRegistry_BroadcastReachesOnlyChannelMembers(t *testing.T) {
	r := newTestRegistry()
	viewer := newFakeMember("viewer", 4)
	other := newFakeMember("other", 4)
	require.NoError(t, r.Join(streamKey, viewer))
	require.NoError(t, r.Join(domain.ChannelKey{Kind: domain.ChannelStream, ID: "s-2"}, other))

	n, err := r.Broadcast(context.Background(), streamKey, []byte(`{"viewers":10}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	frames := viewer.received()
	require.Len(t, frames, 1)
	assert.Equal(t, "stream_s-1", frames[0].Event)
	assert.JSONEq(t, `{"viewers":10}`, string(frames[0].Data))
	assert.Empty(t, other.received())
}

func TestRegistry_BroadcastToEmptyChannel(t *testing.T) {
	r := newTestRegistry()
	n, err := r.Broadcast(context.Background(), streamKey, []byte(`{}`))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, r.HasChannel(streamKey))
}

func TestRegistry_BroadcastRejectsInvalidJSON(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Broadcast(context.Background(), streamKey, []byte(`{not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestRegistry_FullQueueDropsForThatMemberOnly(t *testing.T) {
	r := newTestRegistry()
	slow := newFakeMember("slow", 1)
	fast := newFakeMember("fast", 10)
	require.NoError(t, r.Join(streamKey, slow))
	require.NoError(t, r.Join(streamKey, fast))

	for i := 0; i < 3; i++ {
		_, err := r.Broadcast(context.Background(), streamKey, []byte(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
	}

	assert.Len(t, slow.received(), 1)
	assert.Len(t, fast.received(), 3)
}

func TestRegistry_NotificationEventName(t *testing.T) {
	assert.Equal(t, "user_u-9", EventName(domain.ChannelKey{Kind: domain.ChannelNotification, ID: "u-9"}))
	assert.Equal(t, "tournament_t-1", EventName(domain.ChannelKey{Kind: domain.ChannelTournament, ID: "t-1"}))
}

func TestRegistry_PublisherFailureStillDeliversLocally(t *testing.T) {
	r := newTestRegistry()
	pub := &fakePublisher{err: errors.New("redis down")}
	r.SetPublisher(pub)
	m := newFakeMember("m", 4)
	require.NoError(t, r.Join(streamKey, m))

	n, err := r.Broadcast(context.Background(), streamKey, []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrRelayUnavailable)
	assert.Equal(t, 1, n)
	assert.Len(t, m.received(), 1)
	assert.Equal(t, []domain.ChannelKey{streamKey}, pub.published)
}

func TestRegistry_Stats(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Join(streamKey, newFakeMember("a", 1)))
	require.NoError(t, r.Join(streamKey, newFakeMember("b", 1)))
	require.NoError(t, r.Join(domain.ChannelKey{Kind: domain.ChannelNotification, ID: "u-1"}, newFakeMember("c", 1)))

	stats := r.Stats()
	assert.Equal(t, 1, stats.Channels[domain.ChannelStream])
	assert.Equal(t, 2, stats.Connections[domain.ChannelStream])
	assert.Equal(t, 1, stats.Channels[domain.ChannelNotification])
	assert.Equal(t, 0, stats.Channels[domain.ChannelTournament])
}

func TestRegistry_CloseDisconnectsMembers(t *testing.T) {
	r := newTestRegistry()
	m := newFakeMember("m", 1)
	require.NoError(t, r.Join(streamKey, m))

	r.Close()
	r.Close()

	m.mu.Lock()
	assert.True(t, m.closed)
	m.mu.Unlock()
	assert.False(t, r.HasChannel(streamKey))
	assert.ErrorIs(t, r.Join(streamKey, newFakeMember("late", 1)), ErrRegistryClosed)
	_, err := r.Broadcast(context.Background(), streamKey, []byte(`{}`))
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistry_ConcurrentJoinLeaveBroadcast(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		m := newFakeMember(fmt.Sprintf("m-%d", i), 100)
		go func() {
			defer wg.Done()
			_ = r.Join(streamKey, m)
			r.Leave(streamKey, m)
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Broadcast(context.Background(), streamKey, []byte(`{}`))
		}()
	}
	wg.Wait()

	assert.False(t, r.HasChannel(streamKey))
}
