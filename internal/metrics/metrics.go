// Package metrics provides the Prometheus instrumentation for the verso
// backend: standard HTTP request metrics plus counters for the decisions the
// business core makes (authorization verdicts, order transitions, checkouts).
//
// Wire it up once in main:
//
//	r.Use(metrics.Middleware)
//	r.Get("/metrics", metrics.Handler().ServeHTTP)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks how long each HTTP request takes, broken down
	// by method and status code.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "verso",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// RequestTotal counts all HTTP requests.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verso",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	// AuthzDecisions counts every authorization verdict by action and outcome.
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verso",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by action and outcome.",
		},
		[]string{"action", "outcome"}, // outcome: "allowed" | "denied"
	)

	// OrderTransitions counts order status transitions, legal and rejected.
	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verso",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transition attempts by target status and outcome.",
		},
		[]string{"to", "outcome"}, // outcome: "ok" | "invalid" | "denied" | "error"
	)

	// Checkouts counts checkout attempts by outcome.
	Checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verso",
			Subsystem: "orders",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		},
		[]string{"outcome"}, // "ok" | "empty_cart" | "insufficient_stock" | "error"
	)

	// StockRestorationFailures counts cancelled orders whose stock could not
	// be fully restored and need manual reconciliation.
	StockRestorationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verso",
			Subsystem: "orders",
			Name:      "stock_restoration_failures_total",
			Help:      "Cancellations where restoring variant stock failed.",
		},
	)
)

// DefaultRegistry is the Prometheus registry used by the verso backend.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		RequestDuration,
		RequestTotal,
		AuthzDecisions,
		OrderTransitions,
		Checkouts,
		StockRestorationFailures,
	)
}

// Handler serves the scrape endpoint for DefaultRegistry.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}

// Middleware records duration and count for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := strconv.Itoa(ww.Status())
		RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		RequestTotal.WithLabelValues(r.Method, status).Inc()
	})
}
