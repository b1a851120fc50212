// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters for the tick server. Every increment is mirrored into
// the process-wide go-counter registry so counters can be logged in one
// place; a local snapshot is kept for probes and tests.

package control

import (
	"sync"
	"time"

	count "github.com/jayalane/go-counter"
)

var countersOnce sync.Once

// InitCounters starts the process-wide counter registry. Safe to call repeatedly.
func InitCounters() {
	countersOnce.Do(count.InitCounters)
}

// LogCounters writes the process-wide counters to the counter log.
func LogCounters() {
	InitCounters()
	count.LogCounters()
}

// Metrics holds named counters and gauges for one component.
type Metrics struct {
	prefix  string
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewMetrics creates an empty registry whose counters are published as
// "<prefix>_<name>".
func NewMetrics(prefix string) *Metrics {
	InitCounters()
	return &Metrics{
		prefix:  prefix,
		metrics: make(map[string]int64),
	}
}

// Incr adds one to a counter.
func (m *Metrics) Incr(name string) {
	m.mu.Lock()
	m.metrics[name]++
	m.updated = time.Now()
	m.mu.Unlock()
	count.IncrSync(m.prefix + "_" + name)
}

// Set sets a gauge. Gauges stay local to the snapshot.
func (m *Metrics) Set(name string, value int64) {
	m.mu.Lock()
	m.metrics[name] = value
	m.updated = time.Now()
	m.mu.Unlock()
}

// Get returns the current value of a counter or gauge.
func (m *Metrics) Get(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics[name]
}

// GetSnapshot returns the latest metrics.
func (m *Metrics) GetSnapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.metrics))
	for k, v := range m.metrics {
		out[k] = v
	}
	return out
}

// Updated returns when any metric last changed.
func (m *Metrics) Updated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}
