package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RateLimitWaits       *prometheus.CounterVec
	RateLimitWaitSeconds prometheus.Histogram
	APIRequests          *prometheus.CounterVec
	APIRetries           *prometheus.CounterVec
	TokenRefreshes       *prometheus.CounterVec
	Logins               *prometheus.CounterVec
}

// New registers the scoreboard collectors on a fresh registry, so several
// instances (one per test, for example) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RateLimitWaits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_ratelimit_waits_total",
			Help: "Number of times an outbound request waited for the rate limiter",
		}, []string{"reason"}),
		RateLimitWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoreboard_ratelimit_wait_seconds",
			Help:    "Time spent waiting for the rate limiter",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 30, 300},
		}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_api_requests_total",
			Help: "Requests sent to the intranet API by method and status code",
		}, []string{"method", "status"}),
		APIRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_api_retries_total",
			Help: "Retries of intranet API requests by reason",
		}, []string{"reason"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_token_refreshes_total",
			Help: "Token refresh attempts by outcome",
		}, []string{"outcome"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_logins_total",
			Help: "Completed authorization callbacks by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRateLimitWait(reason string, wait time.Duration) {
	m.RateLimitWaits.WithLabelValues(reason).Inc()
	m.RateLimitWaitSeconds.Observe(wait.Seconds())
}

// ObserveAPIRequest counts a sent request. status is 0 for transport failures.
func (m *Metrics) ObserveAPIRequest(method string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(method, label).Inc()
}

func (m *Metrics) IncrementRetries(reason string) {
	m.APIRetries.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTokenRefreshes(outcome string) {
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementLogins(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
