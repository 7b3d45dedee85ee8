package services

import (
	"context"
	"errors"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/pkg/cache"
	"arenahub/pkg/circuitbreaker"

	"go.uber.org/zap"
)

const (
	storePrimary  = "primary"
	storeFallback = "fallback"
)

type InitTokenGateConfig struct {
	TTL              time.Duration
	SweepInterval    time.Duration
	StoreTimeout     time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// InitTokenGate puts the primary init token store and an in-process TTL
// cache behind one interface. Tokens go to the cache only when the primary
// store fails or its circuit breaker is open, and consumption checks the
// cache whenever the primary store does not confirm the token.
type InitTokenGate struct {
	primary  ports.InitTokenRepository
	fallback *cache.Cache[domain.InitToken]
	breaker  *circuitbreaker.CircuitBreaker
	metrics  ports.AuthMetrics
	logger   *zap.SugaredLogger

	ttl           time.Duration
	sweepInterval time.Duration
	storeTimeout  time.Duration
	now           func() time.Time
	generate      func() (string, error)
}

type InitTokenGateOption func(*InitTokenGate)

func WithGateClock(now func() time.Time) InitTokenGateOption {
	return func(g *InitTokenGate) {
		g.now = now
	}
}

func WithTokenGenerator(generate func() (string, error)) InitTokenGateOption {
	return func(g *InitTokenGate) {
		g.generate = generate
	}
}

func NewInitTokenGate(
	primary ports.InitTokenRepository,
	cfg InitTokenGateConfig,
	metrics ports.AuthMetrics,
	logger *zap.SugaredLogger,
	opts ...InitTokenGateOption,
) *InitTokenGate {
	g := &InitTokenGate{
		primary:       primary,
		metrics:       metrics,
		logger:        logger,
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		storeTimeout:  cfg.StoreTimeout,
		now:           time.Now,
		generate:      GenerateInitToken,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.fallback = cache.New(cache.WithClock[domain.InitToken](g.now))

	g.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold:    cfg.BreakerThreshold,
		SuccessThreshold:    1,
		Timeout:             cfg.BreakerCooldown,
		MaxRequestsHalfOpen: 1,
	}).WithClock(g.now)
	g.breaker.IsSuccessful = func(err error) bool {
		return errors.Is(err, domain.ErrInitTokenNotFound)
	}
	g.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		g.logger.Warnw("init token store breaker changed state",
			"from", from.String(),
			"to", to.String(),
		)
		g.metrics.InitTokenBreakerState(to.String())
	})
	g.metrics.InitTokenBreakerState(circuitbreaker.StateClosed.String())

	return g
}

// Issue creates a token valid for the configured TTL. It only fails if no
// random material is available; store failures divert to the fallback.
func (g *InitTokenGate) Issue(ctx context.Context, deviceFingerprint, ip string) (*domain.InitToken, error) {
	value, err := g.generate()
	if err != nil {
		return nil, err
	}

	now := g.now()
	token := &domain.InitToken{
		Token:             value,
		DeviceFingerprint: deviceFingerprint,
		IPAddress:         ip,
		IssuedAt:          now,
		ExpiresAt:         now.Add(g.ttl),
	}

	err = g.breaker.Execute(func() error {
		storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
		defer cancel()
		return g.primary.Insert(storeCtx, token)
	})
	if err == nil {
		g.metrics.InitTokenIssued(storePrimary)
		return token, nil
	}

	g.logger.Warnw("init token store unavailable, issuing from fallback",
		"error", err,
		"breaker", g.breaker.GetState().String(),
	)
	g.metrics.InitTokenStoreError("insert")
	g.fallback.Set(value, *token, g.ttl)
	g.metrics.InitTokenIssued(storeFallback)
	return token, nil
}

// Validate reports whether token is live without consuming it.
func (g *InitTokenGate) Validate(ctx context.Context, token string) error {
	err := g.breaker.Execute(func() error {
		storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
		defer cancel()
		return g.primary.Check(storeCtx, token)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInitTokenNotFound), errors.Is(err, circuitbreaker.ErrOpen):
	default:
		g.logger.Warnw("init token store check failed, checking fallback", "error", err)
		g.metrics.InitTokenStoreError("check")
	}

	if _, ok := g.fallback.Get(token); ok {
		return nil
	}

	g.metrics.InitTokenRejected()
	return domain.ErrInvalidInitToken
}

// ValidateAndConsume marks token used. Among concurrent callers with the
// same token at most one gets nil.
func (g *InitTokenGate) ValidateAndConsume(ctx context.Context, token string) error {
	err := g.breaker.Execute(func() error {
		storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
		defer cancel()
		return g.primary.Consume(storeCtx, token)
	})
	switch {
	case err == nil:
		// An insert that timed out after committing also lands in the
		// fallback, so both stores are cleared on success.
		g.fallback.Delete(token)
		g.metrics.InitTokenConsumed(storePrimary)
		return nil
	case errors.Is(err, domain.ErrInitTokenNotFound):
	case errors.Is(err, circuitbreaker.ErrOpen):
		g.logger.Debugw("init token store breaker open, checking fallback")
	default:
		g.logger.Warnw("init token store consume failed, checking fallback", "error", err)
		g.metrics.InitTokenStoreError("consume")
	}

	if _, ok := g.fallback.Take(token); ok {
		g.metrics.InitTokenConsumed(storeFallback)
		return nil
	}

	g.metrics.InitTokenRejected()
	return domain.ErrInvalidInitToken
}

// Start launches the fallback sweeper.
func (g *InitTokenGate) Start() {
	g.fallback.StartSweeper(g.sweepInterval, func(removed int) {
		if removed > 0 {
			g.logger.Debugw("swept expired fallback init tokens", "removed", removed)
		}
		stats := g.fallback.GetStats()
		g.metrics.InitTokenFallbackStats(stats.Total, stats.Active, stats.Expired)
	})
}

// Stop stops the sweeper and waits for it to exit.
func (g *InitTokenGate) Stop() {
	g.fallback.Stop()
}

// Stats reports fallback cache occupancy.
func (g *InitTokenGate) Stats() cache.Stats {
	return g.fallback.GetStats()
}

// BreakerState reports the primary store breaker state.
func (g *InitTokenGate) BreakerState() string {
	return g.breaker.GetState().String()
}
