// Package metrics exposes Prometheus collectors for workflow runs.
package metrics

import (
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flowforge"

// Collector records run and node execution counts and durations.
type Collector struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	dedupeTotal  *prometheus.CounterVec
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_runs_total",
				Help:      "Total number of finished workflow runs",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_duration_seconds",
				Help:      "Workflow run duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		nodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_runs_total",
				Help:      "Total number of executed nodes",
			},
			[]string{"node_type", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_run_duration_seconds",
				Help:      "Node execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node_type"},
		),
		dedupeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trigger_events_total",
				Help:      "Inbound chat events by de-duplication outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (c *Collector) RecordRun(status models.RunStatus, duration time.Duration) {
	if c == nil {
		return
	}

	c.runsTotal.WithLabelValues(string(status)).Inc()
	c.runDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (c *Collector) RecordNode(nodeType models.NodeType, status models.RunStatus, duration time.Duration) {
	if c == nil {
		return
	}

	c.nodesTotal.WithLabelValues(string(nodeType), string(status)).Inc()
	c.nodeDuration.WithLabelValues(string(nodeType)).Observe(duration.Seconds())
}

// RecordTriggerEvent counts an inbound event as "accepted" or "duplicate".
func (c *Collector) RecordTriggerEvent(outcome string) {
	if c == nil {
		return
	}

	c.dedupeTotal.WithLabelValues(outcome).Inc()
}
