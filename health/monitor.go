package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe reports the live status of one component.
type Probe func() Status

// Monitor tracks health of multiple components in a thread-safe manner.
// Components either push a Status with Update or register a Probe that is
// evaluated on every read.
type Monitor struct {
	system string

	mu       sync.RWMutex
	statuses map[string]Status
	probes   map[string]Probe
}

// NewMonitor creates a new health monitor for system
func NewMonitor(system string) *Monitor {
	return &Monitor{
		system:   system,
		statuses: make(map[string]Status),
		probes:   make(map[string]Probe),
	}
}

// Update sets the health status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// Register adds a probe for a named component, replacing any pushed status.
func (m *Monitor) Register(name string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	m.probes[name] = probe
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	probe, isProbe := m.probes[name]
	status, exists := m.statuses[name]
	m.mu.RUnlock()

	if isProbe {
		status = probe()
		status.Component = name
		return status, true
	}
	return status, exists
}

// Remove removes a component from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.probes, name)
}

// Count returns the number of components being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.statuses) + len(m.probes)
}

// AggregateHealth returns the aggregated status of every component, sorted
// by component name.
func (m *Monitor) AggregateHealth() Status {
	m.mu.RLock()
	subStatuses := make([]Status, 0, len(m.statuses)+len(m.probes))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	probes := make(map[string]Probe, len(m.probes))
	for name, probe := range m.probes {
		probes[name] = probe
	}
	m.mu.RUnlock()

	// Probes run outside the lock; they may take their own locks.
	for name, probe := range probes {
		status := probe()
		status.Component = name
		subStatuses = append(subStatuses, status)
	}

	sort.Slice(subStatuses, func(i, j int) bool {
		return subStatuses[i].Component < subStatuses[j].Component
	})
	return Aggregate(m.system, subStatuses)
}

// ServeHTTP writes the aggregated status as JSON. Unhealthy answers 503.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := m.AggregateHealth()

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
