package metric

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/c360/mediaflow/errors"
)

// Snapshot gathers the registry and returns the counter values whose label
// matches value, keyed by metric family name. Counters split by further
// labels are summed.
func (r *MetricsRegistry) Snapshot(label, value string) (map[string]float64, error) {
	families, err := r.prometheusRegistry.Gather()
	if err != nil {
		return nil, errors.WrapTransient(err, "MetricsRegistry", "Snapshot", "gather metrics")
	}

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return LabeledCounters(byName, label, value), nil
}

// LabeledCounters extracts counters carrying label=value from gathered or
// parsed metric families.
func LabeledCounters(families map[string]*dto.MetricFamily, label, value string) map[string]float64 {
	counters := make(map[string]float64)

	for name, family := range families {
		if family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range family.GetMetric() {
			if !hasLabel(m, label, value) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				counters[name] += c.GetValue()
			}
		}
	}
	return counters
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
