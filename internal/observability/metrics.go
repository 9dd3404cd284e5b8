package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stsctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stsctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	daemonExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stsctl",
			Subsystem: "daemon",
			Name:      "exchanges_total",
			Help:      "Daemon request/response exchanges by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	daemonDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stsctl",
			Subsystem: "daemon",
			Name:      "exchange_duration_seconds",
			Help:      "Daemon exchange duration in seconds, including the terminating read timeout.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 1.5, 2, 3, 5, 10},
		},
		[]string{"command", "outcome"},
	)
	daemonResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stsctl",
			Subsystem: "daemon",
			Name:      "response_bytes",
			Help:      "Bytes received per daemon exchange.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{"command"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, daemonExchanges, daemonDuration, daemonResponseBytes)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordExchange records one daemon exchange. outcome is a short label such
// as "ok", "silent", "sent" or an error class.
func RecordExchange(command, outcome string, responseBytes int, duration time.Duration) {
	RegisterMetrics()
	daemonExchanges.WithLabelValues(command, outcome).Inc()
	daemonDuration.WithLabelValues(command, outcome).Observe(duration.Seconds())
	if responseBytes > 0 {
		daemonResponseBytes.WithLabelValues(command).Observe(float64(responseBytes))
	}
}
