package generator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/mediaflow/metric"
)

type generatorMetrics struct {
	frames   prometheus.Counter
	bytes    prometheus.Counter
	recycled prometheus.Counter
	retries  prometheus.Counter
}

// newGeneratorMetrics returns nil when registry is nil
func newGeneratorMetrics(registry *metric.MetricsRegistry, name string) (*generatorMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"node": name}
	m := &generatorMetrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "generator",
			Name:        "frames_total",
			Help:        "Frames emitted by the generator",
			ConstLabels: labels,
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "generator",
			Name:        "bytes_total",
			Help:        "Payload bytes emitted by the generator",
			ConstLabels: labels,
		}),
		recycled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "generator",
			Name:        "recycled_total",
			Help:        "Records returned to the generator and released",
			ConstLabels: labels,
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "generator",
			Name:        "pacing_retries_total",
			Help:        "Dispatch attempts deferred by frame pacing",
			ConstLabels: labels,
		}),
	}

	service := "generator_" + name
	if err := registry.RegisterCounter(service, "frames", m.frames); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(service, "bytes", m.bytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(service, "recycled", m.recycled); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(service, "pacing_retries", m.retries); err != nil {
		return nil, err
	}
	return m, nil
}
