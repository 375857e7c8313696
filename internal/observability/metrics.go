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
			Namespace: "spi2wb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spi2wb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	frameTransfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spi2wb",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "SPI frames transferred, by direction and outcome.",
		},
		[]string{"op", "result"},
	)
	bytesExchanged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spi2wb",
			Subsystem: "session",
			Name:      "bytes_total",
			Help:      "Bytes exchanged over the SPI link.",
		},
	)
	transferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spi2wb",
			Subsystem: "session",
			Name:      "transfer_duration_seconds",
			Help:      "Frame transfer duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"op"},
	)
	scenarioRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spi2wb",
			Subsystem: "bench",
			Name:      "scenarios_total",
			Help:      "Scenario runs by outcome (pass, fail, error).",
		},
		[]string{"scenario", "result"},
	)
	mismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spi2wb",
			Subsystem: "verify",
			Name:      "mismatches_total",
			Help:      "Conformance mismatches by kind.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			frameTransfers,
			bytesExchanged,
			transferDuration,
			scenarioRuns,
			mismatches,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordTransfer counts one frame. n is the number of bytes that actually
// crossed the link, which is zero for frames rejected before chip-select.
func RecordTransfer(op string, n int, duration time.Duration, success bool) {
	RegisterMetrics()
	result := "ok"
	if !success {
		result = "error"
	}
	frameTransfers.WithLabelValues(op, result).Inc()
	bytesExchanged.Add(float64(n))
	transferDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordScenario(scenario, result string) {
	RegisterMetrics()
	scenarioRuns.WithLabelValues(scenario, result).Inc()
}

func RecordMismatch(kind string) {
	RegisterMetrics()
	mismatches.WithLabelValues(kind).Inc()
}
