package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"arenahub/pkg/cache"
	"arenahub/pkg/config"
	"arenahub/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an address keeps its bucket without requests.
const limiterIdleTTL = 15 * time.Minute

// limiterStore keeps one token bucket per client address. Buckets of idle
// addresses expire and are swept lazily from the request path.
type limiterStore struct {
	mu        sync.Mutex
	limiters  *cache.Cache[*rate.Limiter]
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	return &limiterStore{
		limiters:  cache.New[*rate.Limiter](),
		limit:     limit,
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	limiter, ok := s.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
	}
	s.limiters.Set(key, limiter, limiterIdleTTL)

	if now := s.now(); now.Sub(s.lastSweep) >= limiterIdleTTL {
		s.limiters.Sweep()
		s.lastSweep = now
	}
	s.mu.Unlock()

	return limiter.Allow()
}

// ClientIP extracts the caller address, preferring the first X-Forwarded-For
// hop when a proxy set one.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware limits each client address to the configured
// rate, answering RATE_LIMIT_EXCEEDED once its bucket is empty. MaxConcurrent
// additionally caps in-flight requests across all clients.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	buckets := newLimiterStore(rate.Limit(cfg.RateLimiting.RequestsPerSecond), cfg.RateLimiting.Burst)

	var inFlight chan struct{}
	if cfg.RateLimiting.MaxConcurrent > 0 {
		inFlight = make(chan struct{}, cfg.RateLimiting.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if inFlight != nil {
			select {
			case inFlight <- struct{}{}:
				defer func() { <-inFlight }()
			default:
				abort(c, errors.NewServiceUnavailableError("Too many concurrent requests"))
				return
			}
		}

		if !buckets.allow(ClientIP(c.Request)) {
			abort(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}
