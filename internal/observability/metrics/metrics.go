// Package metrics provides Prometheus instrumentation for skillcert.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled bool

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Submission flow metrics
	submissionTotal *prometheus.CounterVec
	pinDuration     *prometheus.HistogramVec
	gasEstimate     prometheus.Histogram

	// Verification flow metrics
	verificationTotal *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag

	if !enabled {
		return
	}

	constLabels := prometheus.Labels{"service": svcName}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	submissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "skill_submission_total",
			Help:        "Total number of certificate submissions by outcome",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	// Uploads carry whole certificate files, so buckets reach past a minute.
	pinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "pin_upload_duration_seconds",
			Help:        "Pinning service upload latency in seconds",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	gasEstimate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "add_skill_gas_estimate",
			Help:        "Estimated gas for addSkill transactions",
			Buckets:     prometheus.ExponentialBuckets(25_000, 2, 8),
			ConstLabels: constLabels,
		},
	)

	verificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "skill_verification_total",
			Help:        "Total number of verification lookups by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}
