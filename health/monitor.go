package health

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Monitor tracks the health of named pipelines in a thread-safe manner
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
	}
}

// Update stores the status for name, correcting its component name and
// stamping it if needed
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// UpdateHealthy marks name as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks name as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded marks name as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get retrieves the status for name
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a copy of all statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.statuses)
}

// Remove stops tracking name
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
}

// AggregateHealth returns the aggregate status with sub-statuses sorted by name
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	slices.Sort(names)
	subs := make([]Status, 0, len(names))
	for _, name := range names {
		subs = append(subs, m.statuses[name])
	}
	m.mu.RUnlock()

	return Aggregate(systemName, subs)
}

// ListComponents returns the tracked names in sorted order
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of tracked components
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses)
}

// Clear removes all tracked statuses
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.statuses)
}
