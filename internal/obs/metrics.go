package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
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
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)
)

// Payment trust-boundary metrics. Webhook results are labelled so rejected
// and replayed deliveries are visible without reading logs.
var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Webhook deliveries by processing result.",
		},
		[]string{"result"},
	)

	checkoutSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_checkout_sessions_total",
		Help: "Checkout sessions created with the payment gateway.",
	})

	authFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected authentication attempts by token failure reason.",
		},
		[]string{"reason"},
	)
)

// Webhook result label values.
const (
	WebhookOK       = "ok"
	WebhookReplay   = "replay"
	WebhookRejected = "rejected"
	WebhookFlagged  = "flagged"
	WebhookIgnored  = "ignored"
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		webhookEventsTotal, checkoutSessionsTotal, authFailuresTotal,
	)
}

// Handler exposes the Prometheus endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveWebhook counts one webhook delivery result.
func ObserveWebhook(result string) {
	webhookEventsTotal.WithLabelValues(result).Inc()
}

// IncCheckoutSessions counts one created checkout session.
func IncCheckoutSessions() {
	checkoutSessionsTotal.Inc()
}

// IncAuthFailure counts one rejected authentication with its reason. The
// reason never reaches the client; it exists only here and in logs.
func IncAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
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

// CanonicalPath collapses resource identifiers so metrics cardinality stays
// bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const ordersPrefix = "/api/v1/orders/"
	if strings.HasPrefix(path, ordersPrefix) {
		rest := strings.TrimPrefix(path, ordersPrefix)
		if rest != "" && !strings.Contains(rest, "/") {
			return ordersPrefix + ":id"
		}
	}
	return path
}

// statusWriter records the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
