package metric

import (
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/mediaflow/errors"
)

// Registrar is what engine components need to publish their own collectors.
// Collectors are keyed by owner and name so a component can remove its own
// metrics when it goes away.
type Registrar interface {
	Register(owner, name string, collector prometheus.Collector) error
	RegisterCounter(owner, name string, counter prometheus.Counter) error
	RegisterGauge(owner, name string, gauge prometheus.Gauge) error
	Unregister(owner, name string) bool
}

// MetricsRegistry owns the Prometheus registry behind /metrics. It is created
// with the engine metrics and the Go runtime collectors already registered.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics

	mu    sync.RWMutex
	owned map[string]prometheus.Collector
}

var _ Registrar = (*MetricsRegistry)(nil)

// NewMetricsRegistry creates a registry with the engine metrics
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		owned:              make(map[string]prometheus.Collector),
	}
	r.prometheusRegistry.MustRegister(append(r.Metrics.collectors(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)...)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the engine metrics
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

func registryKey(owner, name string) string {
	return owner + "." + name
}

// Register adds a collector under owner/name. Registering the same key twice,
// or a collector Prometheus already knows, is an invalid-class error.
func (r *MetricsRegistry) Register(owner, name string, collector prometheus.Collector) error {
	key := registryKey(owner, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owned[key]; exists {
		return errors.WrapInvalid(fmt.Errorf("%s already registered", key),
			"MetricsRegistry", "Register", "duplicate registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register",
				fmt.Sprintf("prometheus conflict for %s", key))
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register", "prometheus registration")
	}

	r.owned[key] = collector
	return nil
}

// RegisterCounter registers a counter under owner/name
func (r *MetricsRegistry) RegisterCounter(owner, name string, counter prometheus.Counter) error {
	return r.Register(owner, name, counter)
}

// RegisterGauge registers a gauge under owner/name
func (r *MetricsRegistry) RegisterGauge(owner, name string, gauge prometheus.Gauge) error {
	return r.Register(owner, name, gauge)
}

// Unregister removes the collector registered under owner/name and reports
// whether anything was removed.
func (r *MetricsRegistry) Unregister(owner, name string) bool {
	key := registryKey(owner, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	collector, exists := r.owned[key]
	if !exists || !r.prometheusRegistry.Unregister(collector) {
		return false
	}
	delete(r.owned, key)
	return true
}

// Registered lists the owner.name keys of component collectors, sorted
func (r *MetricsRegistry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.owned))
	for key := range r.owned {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
