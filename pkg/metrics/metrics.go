package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch run totals by final notification status (sent/failed) and dry runs.
	DispatchRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_run_count",
			Help: "Total number of dispatch runs",
		},
		[]string{"status"}, // status: sent, failed, dry_run
	)

	// Per-device send outcomes.
	PushSendCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_send_count",
			Help: "Total number of per-device push send attempts",
		},
		[]string{"platform", "status"}, // status: sent, failed
	)

	// Provider call latency (seconds), including retries.
	PushSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_send_duration_seconds",
			Help:    "Provider send duration in seconds, retries included",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"platform"},
	)

	// Tokens disabled after a permanent provider rejection.
	DeadTokenCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_token_count",
			Help: "Total number of device tokens disabled after 404/410",
		},
		[]string{"platform"},
	)

	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordDispatchRun increments the run counter for a final status.
func RecordDispatchRun(status string) {
	DispatchRunCount.WithLabelValues(status).Inc()
}

// RecordPushSend records one per-device send outcome.
func RecordPushSend(platform, status string, duration time.Duration) {
	PushSendCount.WithLabelValues(platform, status).Inc()
	PushSendDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// RecordDeadToken increments the disabled-token counter.
func RecordDeadToken(platform string) {
	DeadTokenCount.WithLabelValues(platform).Inc()
}

// RecordHTTPRequestDuration records HTTP handler latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
