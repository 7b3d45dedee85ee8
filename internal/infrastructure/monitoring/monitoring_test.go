package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"arenahub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPrometheusCollector_InitTokenMetrics(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.InitTokenIssued("primary")
	c.InitTokenIssued("fallback")
	c.InitTokenIssued("fallback")
	c.InitTokenConsumed("fallback")
	c.InitTokenRejected()
	c.InitTokenFallbackStats(3, 2, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.initTokensIssued.WithLabelValues("primary")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.initTokensIssued.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.initTokensConsumed.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.initTokensRejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.initTokenFallback.WithLabelValues("active")))
}

func TestPrometheusCollector_BreakerStateIsOneHot(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.InitTokenBreakerState("open")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.initTokenBreaker.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.initTokenBreaker.WithLabelValues("closed")))

	c.InitTokenBreakerState("closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.initTokenBreaker.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.initTokenBreaker.WithLabelValues("closed")))
}

func TestPrometheusCollector_PresenceAndAuth(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.ConnectionOpened(domain.ChannelStream)
	c.ConnectionOpened(domain.ChannelStream)
	c.ConnectionClosed(domain.ChannelStream)
	c.MessageDelivered(domain.ChannelTournament, 5)
	c.MessageDropped(domain.ChannelTournament)
	c.AuthAttempt("login", domain.AudienceUser, "failure")
	c.RecordHTTPRequest("POST", "/auth/login", 401, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.presenceConnections.WithLabelValues("stream")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.presenceDelivered.WithLabelValues("tournament")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.presenceDropped.WithLabelValues("tournament")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("login", "user", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/auth/login", "401")))
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusCollector(prometheus.NewRegistry())
		NewPrometheusCollector(prometheus.NewRegistry())
	})
}

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker()
	h.AddPostgresCheck(pingerFunc(func(context.Context) error { return nil }), time.Second)
	h.AddCheck("redis", func(context.Context) error { return errors.New("dial tcp: connection refused") }, time.Second)

	status := h.CheckAll(context.Background())

	assert.False(t, status.Healthy())
	assert.Equal(t, "healthy", status.Checks["postgres"])
	assert.Equal(t, "dial tcp: connection refused", status.Checks["redis"])
}

func TestHealthChecker_TimeoutApplies(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.False(t, status.Healthy())
	assert.Contains(t, status.Checks["slow"], "deadline exceeded")
}

func TestHealthChecker_NoChecksIsHealthy(t *testing.T) {
	assert.True(t, NewHealthChecker().CheckAll(context.Background()).Healthy())
}
