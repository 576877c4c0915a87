// Package metric provides Prometheus metrics for the mediaflow engine.
//
// MetricsRegistry wraps a private prometheus.Registry. It registers the engine
// metrics (pipeline state, iterations, folded results, node call durations,
// node lifecycle failures, running tasks) and the Go runtime collectors, and lets
// components register their own collectors under a service name:
//
//	reg := metric.NewMetricsRegistry()
//	cache, _ := buffer.NewCache(16, buffer.WithMetrics(reg, "video"))
//
// Registering the same service/metric pair twice returns an Invalid error rather
// than panicking.
//
// Server exposes the registry at /metrics and an optional health document at /health.
package metric
