package distributed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a reachable redis, e.g. ARENAHUB_TEST_REDIS=localhost:6379.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("ARENAHUB_TEST_REDIS")
	if addr == "" {
		t.Skip("ARENAHUB_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestLock_ExclusiveUntilReleased(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "arenahub:test:lock:" + uuid.NewString()

	first := NewLock(client, key, time.Second)
	second := NewLock(client, key, time.Second)

	require.NoError(t, first.Acquire(ctx, 0))
	assert.ErrorIs(t, second.Acquire(ctx, 200*time.Millisecond), ErrLockTimeout)

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Acquire(ctx, time.Second))
	require.NoError(t, second.Release(ctx))
}

func TestLock_RenewalKeepsLease(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "arenahub:test:lock:" + uuid.NewString()

	lock := NewLock(client, key, 400*time.Millisecond)
	require.NoError(t, lock.Acquire(ctx, 0))

	time.Sleep(time.Second)
	held, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, lock.token, held)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
}

func TestLock_ContextCancelled(t *testing.T) {
	client := testClient(t)
	key := "arenahub:test:lock:" + uuid.NewString()

	holder := NewLock(client, key, time.Second)
	require.NoError(t, holder.Acquire(context.Background(), 0))
	defer holder.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, NewLock(client, key, time.Second).Acquire(ctx, time.Minute), context.DeadlineExceeded)
}
