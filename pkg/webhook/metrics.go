package webhook

import (
	"sync"
	"time"
)

// MetricsTracker keeps per-endpoint request counters.
type MetricsTracker struct {
	metrics map[string]*EndpointMetrics
	mu      sync.RWMutex
}

// NewMetricsTracker creates an empty tracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{metrics: make(map[string]*EndpointMetrics)}
}

// Track records one request against method:path.
func (mt *MetricsTracker) Track(path, method string, success bool, durationMs float64) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	key := method + ":" + path
	m, ok := mt.metrics[key]
	if !ok {
		m = &EndpointMetrics{Path: path, Method: method}
		mt.metrics[key] = m
	}

	m.TotalRequests++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	m.AverageResponseTime = (m.AverageResponseTime*float64(m.TotalRequests-1) + durationMs) / float64(m.TotalRequests)
	m.LastRequestAt = time.Now().UnixMilli()
}

// Snapshot returns a copy of all endpoint metrics.
func (mt *MetricsTracker) Snapshot() []EndpointMetrics {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	result := make([]EndpointMetrics, 0, len(mt.metrics))
	for _, m := range mt.metrics {
		result = append(result, *m)
	}
	return result
}
