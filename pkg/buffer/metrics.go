package buffer

import (
	"github.com/c360/mediaflow/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics holds Prometheus metrics for buffer cache operations.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	puts      prometheus.Counter
	evictions prometheus.Counter
	occupied  prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "buffer_cache",
			Name:        "hits_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of buffer requests served from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "buffer_cache",
			Name:        "misses_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of buffer requests with no sufficient cached buffer",
		}),
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "buffer_cache",
			Name:        "puts_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of buffers returned to the cache",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediaflow",
			Subsystem:   "buffer_cache",
			Name:        "evictions_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of live buffers evicted",
		}),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mediaflow",
			Subsystem:   "buffer_cache",
			Name:        "occupied_slots",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Number of slots holding a live buffer",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_cache_hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_cache_misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_cache_puts", m.puts); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_cache_evictions", m.evictions); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_cache_occupied", m.occupied); err != nil {
		return nil, err
	}

	return m, nil
}
