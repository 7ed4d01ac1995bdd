// Package metrics exposes Prometheus collectors for the ledgers and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stellarpets",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stellarpets",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stellarpets",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stellarpets",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		},
		[]string{"ledger", "op", "result"},
	)

	ledgerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stellarpets",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations including the store transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"ledger", "op"},
	)

	decaySweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stellarpets",
			Subsystem: "decay",
			Name:      "sweeps_total",
			Help:      "Scheduled decay sweeps by outcome.",
		},
		[]string{"result"},
	)

	decayedPets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stellarpets",
			Subsystem: "decay",
			Name:      "pets_total",
			Help:      "Pets visited by scheduled decay sweeps.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOps,
		ledgerDuration,
		decaySweeps,
		decayedPets,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveLedgerOp records one ledger operation. result is "ok" or an error class.
func ObserveLedgerOp(ledger, op, result string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	ledgerOps.WithLabelValues(ledger, op, result).Inc()
	ledgerDuration.WithLabelValues(ledger, op).Observe(duration.Seconds())
}

// ObserveDecaySweep records one scheduled sweep over n pets.
func ObserveDecaySweep(n int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	decaySweeps.WithLabelValues(result).Inc()
	decayedPets.Add(float64(n))
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Routes are labelled by their chi pattern so owner keys do not explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
