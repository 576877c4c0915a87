package buffer

import (
	"github.com/c360/mediaflow/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option func(*cacheOptions)

// cacheOptions holds internal configuration for cache instances.
// Stats are ALWAYS collected - they are not optional.
// Metrics are optional and exposed via WithMetrics().
type cacheOptions struct {
	// metricsReg is optional - if provided, cache stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	// evictCallback is called with a live buffer pushed out by Put
	evictCallback EvictCallback
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil, this option is ignored.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *cacheOptions) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictCallback sets a callback function that is called when a live buffer
// is evicted. It runs outside the cache lock.
func WithEvictCallback(callback EvictCallback) Option {
	return func(opts *cacheOptions) {
		opts.evictCallback = callback
	}
}

func applyOptions(options ...Option) *cacheOptions {
	opts := &cacheOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
