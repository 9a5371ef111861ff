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
			Namespace: "briefctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "briefctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	interviewSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefctl",
			Subsystem: "interview",
			Name:      "steps_total",
			Help:      "Interview steps served, by outcome.",
		},
		[]string{"outcome"},
	)
	interviewSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "briefctl",
			Subsystem: "interview",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		},
	)
	briefings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefctl",
			Subsystem: "interview",
			Name:      "briefings_total",
			Help:      "Briefings generated, by format.",
		},
		[]string{"format"},
	)
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefctl",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Persistence failures, by operation.",
		},
		[]string{"op"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, interviewSteps, interviewSessions, briefings, storeErrors)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordInterviewStep(outcome string) {
	RegisterMetrics()
	interviewSteps.WithLabelValues(outcome).Inc()
}

func SetActiveSessions(n int) {
	RegisterMetrics()
	interviewSessions.Set(float64(n))
}

func RecordBriefing(format string) {
	RegisterMetrics()
	briefings.WithLabelValues(format).Inc()
}

func RecordStoreError(op string) {
	RegisterMetrics()
	storeErrors.WithLabelValues(op).Inc()
}
