// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
)

// Metric name constants used across the quiz services
const (
	MetricPredictionsTotal     = "predictions_total"
	MetricUnknownCategoryTotal = "unknown_category_total"
	MetricTrainingRunsTotal    = "training_runs_total"
	MetricTrainingDurationMs   = "training_duration_ms"
	MetricSubmissionsTotal     = "submissions_total"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*Counter
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter metric - using atomic operations for thread-safe value updates
type Counter struct {
	name  string
	value int64 // Use atomic operations for this field
}

// Histogram metric (simple implementation tracking count, sum, min, max)
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			counters:   make(map[string]*Counter),
			histograms: make(map[string]*Histogram),
		}
	})
	return globalMetrics
}

// IncrementCounter increments a counter metric using atomic operations to reduce lock contention
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddCounter(name, 1)
}

// AddCounter adds a value to a counter metric using atomic operations
func (m *MetricsCollector) AddCounter(name string, value int64) {
	// First try with read lock (fast path for existing counters)
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if exists {
		atomic.AddInt64(&counter.value, value)
		return
	}

	// Slow path: need to create new counter
	m.mu.Lock()
	counter, exists = m.counters[name]
	if !exists {
		counter = &Counter{name: name}
		m.counters[name] = counter
	}
	m.mu.Unlock()

	atomic.AddInt64(&counter.value, value)
}

// GetCounter gets the current value of a counter
func (m *MetricsCollector) GetCounter(name string) int64 {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		return 0
	}

	return atomic.LoadInt64(&counter.value)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		histogram, exists = m.histograms[name]
		if !exists {
			histogram = &Histogram{
				name: name,
				min:  value,
				max:  value,
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	histogram.count++
	histogram.sum += value
	if value < histogram.min {
		histogram.min = value
	}
	if value > histogram.max {
		histogram.max = value
	}
}

// HistogramSnapshot is a point-in-time view of a histogram
type HistogramSnapshot struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// GetHistogram returns a snapshot of a histogram
func (m *MetricsCollector) GetHistogram(name string) HistogramSnapshot {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		return HistogramSnapshot{}
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	return HistogramSnapshot{
		Count: histogram.count,
		Sum:   histogram.sum,
		Min:   histogram.min,
		Max:   histogram.max,
	}
}

// Snapshot returns all counters and histograms as a plain map
func (m *MetricsCollector) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(m.counters)+len(m.histograms))
	for name, counter := range m.counters {
		snapshot[name] = atomic.LoadInt64(&counter.value)
	}
	for name, histogram := range m.histograms {
		histogram.mu.Lock()
		snapshot[name] = HistogramSnapshot{
			Count: histogram.count,
			Sum:   histogram.sum,
			Min:   histogram.min,
			Max:   histogram.max,
		}
		histogram.mu.Unlock()
	}

	return snapshot
}
