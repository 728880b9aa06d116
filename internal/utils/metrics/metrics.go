package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request handling time.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LoginAttemptsTotal counts OAuth callback outcomes.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_login_attempts_total",
		Help: "The total number of OAuth login attempts by outcome",
	}, []string{"provider", "status"})

	// TokenRefreshTotal counts refresh-token exchanges.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_token_refresh_total",
		Help: "The total number of token refreshes by outcome",
	}, []string{"status"})

	// ProviderRequestDuration observes outbound identity-provider calls.
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_provider_request_duration_seconds",
		Help:    "Duration of outbound identity provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
)
