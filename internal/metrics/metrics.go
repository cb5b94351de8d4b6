// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gemstore"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders created at checkout, by display currency.",
		},
		[]string{"currency"},
	)

	ordersCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Cancelled orders, by who cancelled them.",
		},
		[]string{"actor"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status transitions applied.",
		},
		[]string{"from", "to"},
	)

	rateRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "currency",
			Name:      "rate_refreshes_total",
			Help:      "Exchange rate refresh attempts.",
		},
		[]string{"success"},
	)

	rateLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "currency",
			Name:      "rate_lookups_total",
			Help:      "Exchange rate lookups, by the layer that answered.",
		},
		[]string{"source"},
	)

	importRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "import_rows_total",
			Help:      "CSV import rows processed, by outcome.",
		},
		[]string{"result"},
	)

	lowStockAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "low_stock_alerts_total",
			Help:      "Inventory alerts raised for low stock.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		ordersCancelled,
		orderTransitions,
		rateRefreshes,
		rateLookups,
		importRows,
		lowStockAlerts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns the matching
// completion func.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

func RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordOrderPlaced(currency string) {
	ordersPlaced.WithLabelValues(currency).Inc()
}

func RecordOrderCancelled(byAdmin bool) {
	actor := "customer"
	if byAdmin {
		actor = "admin"
	}
	ordersCancelled.WithLabelValues(actor).Inc()
}

func RecordOrderTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

func RecordRateRefresh(success bool) {
	result := "false"
	if success {
		result = "true"
	}
	rateRefreshes.WithLabelValues(result).Inc()
}

// RecordRateLookup takes the layer that answered: identity, cache, database or api.
func RecordRateLookup(source string) {
	rateLookups.WithLabelValues(source).Inc()
}

func RecordImportRows(created, updated, skipped, failed int) {
	importRows.WithLabelValues("created").Add(float64(created))
	importRows.WithLabelValues("updated").Add(float64(updated))
	importRows.WithLabelValues("skipped").Add(float64(skipped))
	importRows.WithLabelValues("failed").Add(float64(failed))
}

func RecordLowStockAlerts(n int) {
	lowStockAlerts.Add(float64(n))
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
