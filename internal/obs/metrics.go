package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	tokenVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Bearer token verifications by outcome.",
		},
		[]string{"outcome"},
	)

	entitlementMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_mutations_total",
			Help: "Entitlement transactions by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	oauthLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oauth_logins_total",
			Help: "Completed OAuth callbacks by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

// Init registers all service metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		tokenVerifications,
		entitlementMutations,
		oauthLogins,
	)
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountTokenVerification records one bearer token verification outcome.
func CountTokenVerification(outcome string) {
	tokenVerifications.WithLabelValues(outcome).Inc()
}

// CountEntitlementMutation records one entitlement transaction outcome.
func CountEntitlementMutation(op, outcome string) {
	entitlementMutations.WithLabelValues(op, outcome).Inc()
}

// CountOAuthLogin records one completed OAuth callback.
func CountOAuthLogin(provider, outcome string) {
	oauthLogins.WithLabelValues(provider, outcome).Inc()
}

// Instrument wraps next with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
