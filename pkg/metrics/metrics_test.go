package metrics

import (
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordRun(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordRun(models.RunStatusSuccess, 10*time.Millisecond)
	collector.RecordRun(models.RunStatusSuccess, 20*time.Millisecond)
	collector.RecordRun(models.RunStatusFailed, time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(collector.runsTotal.WithLabelValues("SUCCESS")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.runsTotal.WithLabelValues("FAILED")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(collector.runDuration))
}

func TestCollector_RecordNode(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordNode(models.NodeTypeHTTPRequest, models.RunStatusFailed, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(collector.nodesTotal.WithLabelValues("HTTP_REQUEST", "FAILED")), 0)
}

func TestCollector_RecordTriggerEvent(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordTriggerEvent("accepted")
	collector.RecordTriggerEvent("duplicate")
	collector.RecordTriggerEvent("duplicate")

	assert.InDelta(t, 2, testutil.ToFloat64(collector.dedupeTotal.WithLabelValues("duplicate")), 0)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RecordRun(models.RunStatusSuccess, time.Second)
		collector.RecordNode(models.NodeTypeTrigger, models.RunStatusSuccess, time.Second)
		collector.RecordTriggerEvent("accepted")
	})
}
