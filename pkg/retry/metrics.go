package retry

import (
	"github.com/c360/mediaflow/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type schedulerMetrics struct {
	sleep prometheus.Gauge
	waits prometheus.Counter
}

func newSchedulerMetrics(registry *metric.MetricsRegistry, owner string) (*schedulerMetrics, error) {
	m := &schedulerMetrics{
		sleep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mediaflow",
			Subsystem:   "retry",
			Name:        "sleep_seconds",
			ConstLabels: prometheus.Labels{"owner": owner},
			Help:        "Current adaptive retry sleep in seconds",
		}),
		waits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "retry",
			Name:        "waits_total",
			ConstLabels: prometheus.Labels{"owner": owner},
			Help:        "Total number of retry waits",
		}),
	}

	if err := registry.RegisterGauge(owner, "retry_sleep", m.sleep); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "retry_waits", m.waits); err != nil {
		return nil, err
	}
	return m, nil
}
