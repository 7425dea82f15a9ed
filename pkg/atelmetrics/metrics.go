package atelmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation metrics
	OperationsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_operations_applied_total",
			Help: "Total number of operations performed, by operation name",
		},
		[]string{"operation"},
	)

	OperationApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atelier_operation_apply_duration_seconds",
			Help:    "Time taken to perform an operation, by operation name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Collab client metrics
	RewindsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atelier_collab_rewinds_total",
			Help: "Total number of unconfirmed operations rewound on message receipt",
		},
	)

	ReplayedOpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atelier_collab_replayed_ops_total",
			Help: "Total number of unconfirmed operations replayed after a rewind",
		},
	)

	UnconfirmedQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atelier_collab_unconfirmed_queue_depth",
			Help: "Current number of operations awaiting server confirmation",
		},
	)

	KeyChainRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atelier_collab_keychain_remaining",
			Help: "Current number of keys available in the collab client's key reservoir",
		},
	)

	// Server metrics
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atelier_server_connected_clients",
			Help: "Current number of clients connected to the server",
		},
	)

	// Block store metrics
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atelier_local_tick_duration_seconds",
			Help:    "Time taken by a local client tick to persist dirty objects",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(OperationsApplied)
	prometheus.MustRegister(OperationApplyDuration)
	prometheus.MustRegister(RewindsTotal)
	prometheus.MustRegister(ReplayedOpsTotal)
	prometheus.MustRegister(UnconfirmedQueueDepth)
	prometheus.MustRegister(KeyChainRemaining)
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(TickDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
