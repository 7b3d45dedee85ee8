package monitoring

import (
	"strconv"
	"time"

	"arenahub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerStates = []string{"closed", "open", "half-open"}

type PrometheusCollector struct {
	// Auth
	authAttempts *prometheus.CounterVec

	// Init tokens
	initTokensIssued     *prometheus.CounterVec
	initTokensConsumed   *prometheus.CounterVec
	initTokensRejected   prometheus.Counter
	initTokenStoreErrors *prometheus.CounterVec
	initTokenFallback    *prometheus.GaugeVec
	initTokenBreaker     *prometheus.GaugeVec

	// Presence
	presenceConnections *prometheus.GaugeVec
	presenceDelivered   *prometheus.CounterVec
	presenceDropped     *prometheus.CounterVec

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheusCollector registers every metric with reg. Tests pass a
// fresh prometheus.NewRegistry().
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_auth_attempts_total",
			Help: "Authentication operations by outcome",
		}, []string{"operation", "audience", "outcome"}),

		initTokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_init_tokens_issued_total",
			Help: "Init tokens issued, by the store that accepted them",
		}, []string{"store"}),

		initTokensConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_init_tokens_consumed_total",
			Help: "Init tokens consumed, by the store that confirmed them",
		}, []string{"store"}),

		initTokensRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "arenahub_init_tokens_rejected_total",
			Help: "Init tokens rejected as unknown, used or expired",
		}),

		initTokenStoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_init_token_store_errors_total",
			Help: "Primary init token store failures",
		}, []string{"operation"}),

		initTokenFallback: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arenahub_init_token_fallback_entries",
			Help: "Entries held by the in-process init token fallback",
		}, []string{"state"}),

		initTokenBreaker: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arenahub_init_token_breaker_state",
			Help: "1 for the current state of the init token store breaker",
		}, []string{"state"}),

		presenceConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arenahub_presence_connections",
			Help: "Open realtime connections per channel kind",
		}, []string{"kind"}),

		presenceDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_presence_messages_delivered_total",
			Help: "Messages queued to realtime members",
		}, []string{"kind"}),

		presenceDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_presence_messages_dropped_total",
			Help: "Messages dropped because a member's send queue was full",
		}, []string{"kind"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arenahub_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arenahub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
	}
}

func (p *PrometheusCollector) AuthAttempt(operation string, audience domain.Audience, outcome string) {
	p.authAttempts.WithLabelValues(operation, string(audience), outcome).Inc()
}

func (p *PrometheusCollector) InitTokenIssued(store string) {
	p.initTokensIssued.WithLabelValues(store).Inc()
}

func (p *PrometheusCollector) InitTokenConsumed(store string) {
	p.initTokensConsumed.WithLabelValues(store).Inc()
}

func (p *PrometheusCollector) InitTokenRejected() {
	p.initTokensRejected.Inc()
}

func (p *PrometheusCollector) InitTokenStoreError(op string) {
	p.initTokenStoreErrors.WithLabelValues(op).Inc()
}

func (p *PrometheusCollector) InitTokenFallbackStats(total, active, expired int) {
	p.initTokenFallback.WithLabelValues("total").Set(float64(total))
	p.initTokenFallback.WithLabelValues("active").Set(float64(active))
	p.initTokenFallback.WithLabelValues("expired").Set(float64(expired))
}

func (p *PrometheusCollector) InitTokenBreakerState(state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		p.initTokenBreaker.WithLabelValues(s).Set(value)
	}
}

func (p *PrometheusCollector) ConnectionOpened(kind domain.ChannelKind) {
	p.presenceConnections.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) ConnectionClosed(kind domain.ChannelKind) {
	p.presenceConnections.WithLabelValues(string(kind)).Dec()
}

func (p *PrometheusCollector) MessageDelivered(kind domain.ChannelKind, members int) {
	p.presenceDelivered.WithLabelValues(string(kind)).Add(float64(members))
}

func (p *PrometheusCollector) MessageDropped(kind domain.ChannelKind) {
	p.presenceDropped.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
