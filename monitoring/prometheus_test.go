package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ EngineMetrics = (*PrometheusMetrics)(nil)
}

func TestNewPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	metrics := NewPrometheusMetrics(reg)

	require.NotNil(t, metrics)
	require.NotNil(t, metrics.registry)
}

func TestPrometheusMetrics_MetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)

	metrics.RecordTick("exec-1", 5*time.Millisecond)
	metrics.RecordDispatch("agent", "completed", 2*time.Millisecond)
	metrics.RecordWriteQueueDepth("exec-1", 3)
	metrics.RecordFrame("exec-1", 1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.GetName()
	}

	for _, expected := range []string{
		"tickengine_tick_duration_seconds",
		"tickengine_dispatch_total",
		"tickengine_dispatch_duration_seconds",
		"tickengine_write_queue_depth",
		"tickengine_frames_total",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestPrometheusMetrics_RecordDispatch_PartitionsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)

	metrics.RecordDispatch("agent", "completed", time.Millisecond)
	metrics.RecordDispatch("agent", "failed", time.Millisecond)
	metrics.RecordDispatch("agent", "failed", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != "tickengine_dispatch_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(3), total)
}

func TestNoOpMetrics_ImplementsInterface(t *testing.T) {
	var _ EngineMetrics = NoOpMetrics{}
	NoOpMetrics{}.RecordTick("e", time.Second)
	NoOpMetrics{}.RecordDispatch("t", "completed", time.Second)
	NoOpMetrics{}.RecordWriteQueueDepth("e", 0)
	NoOpMetrics{}.RecordFrame("e", 0)
}

func TestGlobalMetrics_DefaultsToNoOp(t *testing.T) {
	defer SetGlobalMetrics(nil)

	SetGlobalMetrics(nil)
	_, ok := GetGlobalMetrics().(NoOpMetrics)
	assert.True(t, ok)

	reg := prometheus.NewRegistry()
	custom := NewPrometheusMetrics(reg)
	SetGlobalMetrics(custom)
	assert.Same(t, custom, GetGlobalMetrics())
}
