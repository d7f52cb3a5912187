package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements EngineMetrics using Prometheus for metric
// collection. All metrics are prefixed with "tickengine_" to avoid naming
// conflicts with other instrumented subsystems in the same process.
//
// Metrics exposed:
//   - tickengine_tick_duration_seconds: Histogram of full tick duration by execution
//   - tickengine_dispatch_total: Counter of executor dispatches by node type and outcome
//   - tickengine_dispatch_duration_seconds: Histogram of dispatch duration by node type
//   - tickengine_write_queue_depth: Histogram of write-queue depth at commit time
//   - tickengine_frames_total: Counter of frames persisted, by execution
type PrometheusMetrics struct {
	tickDuration     *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	writeQueueDepth  *prometheus.HistogramVec
	framesTotal      *prometheus.CounterVec
	registry         prometheus.Registerer
}

// NewPrometheusMetrics creates a Prometheus-backed EngineMetrics and
// registers all collectors with reg. Registration failures (e.g. duplicate
// registration) panic; this is intentional fail-fast behavior at startup.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	tickDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickengine_tick_duration_seconds",
			Help:    "Duration of a full Snapshot through Effects tick pass, partitioned by execution.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"execution_id"},
	)

	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickengine_dispatch_total",
			Help: "Total number of executor dispatches, partitioned by node type and outcome.",
		},
		[]string{"node_type", "outcome"},
	)

	dispatchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickengine_dispatch_duration_seconds",
			Help:    "Duration of executor dispatches, partitioned by node type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node_type"},
	)

	writeQueueDepth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickengine_write_queue_depth",
			Help:    "Number of write ops applied at commit time, partitioned by execution.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
		[]string{"execution_id"},
	)

	framesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickengine_frames_total",
			Help: "Total number of durable frames persisted, partitioned by execution.",
		},
		[]string{"execution_id"},
	)

	reg.MustRegister(tickDuration)
	reg.MustRegister(dispatchTotal)
	reg.MustRegister(dispatchDuration)
	reg.MustRegister(writeQueueDepth)
	reg.MustRegister(framesTotal)

	return &PrometheusMetrics{
		tickDuration:     tickDuration,
		dispatchTotal:    dispatchTotal,
		dispatchDuration: dispatchDuration,
		writeQueueDepth:  writeQueueDepth,
		framesTotal:      framesTotal,
		registry:         reg,
	}
}

func (pm *PrometheusMetrics) RecordTick(executionID string, duration time.Duration) {
	pm.tickDuration.WithLabelValues(executionID).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordDispatch(nodeType, outcome string, duration time.Duration) {
	pm.dispatchTotal.WithLabelValues(nodeType, outcome).Inc()
	pm.dispatchDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordWriteQueueDepth(executionID string, depth int) {
	pm.writeQueueDepth.WithLabelValues(executionID).Observe(float64(depth))
}

func (pm *PrometheusMetrics) RecordFrame(executionID string, sequenceNumber int64) {
	pm.framesTotal.WithLabelValues(executionID).Inc()
}
