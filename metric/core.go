package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the engine-level metrics shared by every pipeline and task
type Metrics struct {
	PipelineState      *prometheus.GaugeVec
	PipelineIterations *prometheus.CounterVec
	PipelineResults    *prometheus.CounterVec
	NodeDuration       *prometheus.HistogramVec
	NodeErrors         *prometheus.CounterVec
	TasksRunning       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mediaflow",
				Subsystem: "pipeline",
				Name:      "state",
				Help:      "Pipeline state (0=not_started, 1=running, 2=stopping, 3=stopped)",
			},
			[]string{"pipeline"},
		),

		PipelineIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediaflow",
				Subsystem: "pipeline",
				Name:      "iterations_total",
				Help:      "Total number of dispatch/process iterations",
			},
			[]string{"pipeline"},
		),

		PipelineResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediaflow",
				Subsystem: "pipeline",
				Name:      "results_total",
				Help:      "Folded iteration results by result code",
			},
			[]string{"pipeline", "result"},
		),

		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mediaflow",
				Subsystem: "node",
				Name:      "duration_seconds",
				Help:      "Time spent in node dispatch and process calls",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"node", "op"},
		),

		NodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediaflow",
				Subsystem: "node",
				Name:      "lifecycle_errors_total",
				Help:      "Total number of node open/close failures",
			},
			[]string{"node", "op"},
		),

		TasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mediaflow",
				Subsystem: "task",
				Name:      "running",
				Help:      "Number of tasks whose coordinator is running",
			},
		),
	}
}

// RecordPipelineState updates the pipeline state gauge
func (m *Metrics) RecordPipelineState(pipeline string, state int) {
	m.PipelineState.WithLabelValues(pipeline).Set(float64(state))
}

// RecordIteration counts one iteration and its folded result
func (m *Metrics) RecordIteration(pipeline, result string) {
	m.PipelineIterations.WithLabelValues(pipeline).Inc()
	m.PipelineResults.WithLabelValues(pipeline, result).Inc()
}

// NodeObserver returns the duration observer for one node operation, so hot
// loops can resolve the label set once
func (m *Metrics) NodeObserver(node, op string) prometheus.Observer {
	return m.NodeDuration.WithLabelValues(node, op)
}

// RecordNodeDuration records the time spent in a node operation
func (m *Metrics) RecordNodeDuration(node, op string, duration time.Duration) {
	m.NodeDuration.WithLabelValues(node, op).Observe(duration.Seconds())
}

// RecordNodeError increments the open/close failure counter
func (m *Metrics) RecordNodeError(node, op string) {
	m.NodeErrors.WithLabelValues(node, op).Inc()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineState,
		m.PipelineIterations,
		m.PipelineResults,
		m.NodeDuration,
		m.NodeErrors,
		m.TasksRunning,
	}
}
