package service

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// MetricsCollector collects and aggregates metadata build metrics per service
type MetricsCollector struct {
	metrics      map[string]*ServiceMetrics
	metricsMutex sync.RWMutex

	startTime time.Time
}

// ServiceMetrics holds metrics for a specific Breeze service
type ServiceMetrics struct {
	Service          string          `json:"service"`
	TotalBuilds      int64           `json:"totalBuilds"`
	FailedBuilds     int64           `json:"failedBuilds"`
	CacheHits        int64           `json:"cacheHits"`
	TotalBuildTimeNs int64           `json:"totalBuildTimeNs"`
	MinBuildTimeNs   int64           `json:"minBuildTimeNs"`
	MaxBuildTimeNs   int64           `json:"maxBuildTimeNs"`
	AvgBuildTimeNs   int64           `json:"avgBuildTimeNs"`
	CurrentVersion   string          `json:"currentVersion,omitempty"`
	TypeCount        int             `json:"typeCount"`
	LastBuildTime    time.Time       `json:"lastBuildTime"`
	LastError        string          `json:"lastError,omitempty"`
	LastErrorTime    time.Time       `json:"lastErrorTime,omitempty"`
	VersionChanges   []VersionChange `json:"versionChanges"`
}

// VersionChange represents a change of the rendered document
type VersionChange struct {
	FromVersion string    `json:"fromVersion"`
	ToVersion   string    `json:"toVersion"`
	ChangedAt   time.Time `json:"changedAt"`
}

// BuildMetrics represents metrics for a single document build
type BuildMetrics struct {
	Service     string
	Success     bool
	BuildTimeNs int64
	Version     string
	TypeCount   int
	Error       string
	Timestamp   time.Time
}

// ErrServiceMetricsNotFound is returned for a service that was never built
var ErrServiceMetricsNotFound = errors.New("service metrics not found")

const maxVersionChanges = 100

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*ServiceMetrics),
		startTime: time.Now(),
	}
}

func (mc *MetricsCollector) serviceMetrics(service string) *ServiceMetrics {
	sm, exists := mc.metrics[service]
	if !exists {
		sm = &ServiceMetrics{
			Service:        service,
			VersionChanges: []VersionChange{},
		}
		mc.metrics[service] = sm
	}
	return sm
}

// RecordBuild records metrics for a document build
func (mc *MetricsCollector) RecordBuild(m *BuildMetrics) {
	if m == nil {
		return
	}

	mc.metricsMutex.Lock()
	defer mc.metricsMutex.Unlock()

	sm := mc.serviceMetrics(m.Service)
	if sm.TotalBuilds == 0 || m.BuildTimeNs < sm.MinBuildTimeNs {
		sm.MinBuildTimeNs = m.BuildTimeNs
	}
	if m.BuildTimeNs > sm.MaxBuildTimeNs {
		sm.MaxBuildTimeNs = m.BuildTimeNs
	}
	sm.TotalBuilds++
	sm.TotalBuildTimeNs += m.BuildTimeNs
	sm.AvgBuildTimeNs = sm.TotalBuildTimeNs / sm.TotalBuilds
	sm.LastBuildTime = m.Timestamp

	if !m.Success {
		sm.FailedBuilds++
		sm.LastError = m.Error
		sm.LastErrorTime = m.Timestamp
		return
	}

	sm.TypeCount = m.TypeCount
	if sm.CurrentVersion != m.Version {
		if sm.CurrentVersion != "" {
			sm.VersionChanges = append(sm.VersionChanges, VersionChange{
				FromVersion: sm.CurrentVersion,
				ToVersion:   m.Version,
				ChangedAt:   m.Timestamp,
			})
			// Keep only the last changes
			if len(sm.VersionChanges) > maxVersionChanges {
				sm.VersionChanges = sm.VersionChanges[len(sm.VersionChanges)-maxVersionChanges:]
			}
		}
		sm.CurrentVersion = m.Version
	}
}

// RecordCacheHit records a document served from cache
func (mc *MetricsCollector) RecordCacheHit(service string) {
	mc.metricsMutex.Lock()
	defer mc.metricsMutex.Unlock()

	mc.serviceMetrics(service).CacheHits++
}

// GetServiceMetrics returns metrics for a specific service
func (mc *MetricsCollector) GetServiceMetrics(service string) (*ServiceMetrics, error) {
	mc.metricsMutex.RLock()
	defer mc.metricsMutex.RUnlock()

	sm, exists := mc.metrics[service]
	if !exists {
		return nil, ErrServiceMetricsNotFound
	}
	return sm.copy(), nil
}

// GetAllMetrics returns metrics for all services, sorted by service name
func (mc *MetricsCollector) GetAllMetrics() []*ServiceMetrics {
	mc.metricsMutex.RLock()
	defer mc.metricsMutex.RUnlock()

	result := make([]*ServiceMetrics, 0, len(mc.metrics))
	for _, sm := range mc.metrics {
		result = append(result, sm.copy())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Service < result[j].Service
	})
	return result
}

// GetMetricsSummary returns a summary of metrics
func (mc *MetricsCollector) GetMetricsSummary() map[string]interface{} {
	mc.metricsMutex.RLock()
	defer mc.metricsMutex.RUnlock()

	var builds, failed, hits, buildTimeNs int64
	for _, sm := range mc.metrics {
		builds += sm.TotalBuilds
		failed += sm.FailedBuilds
		hits += sm.CacheHits
		buildTimeNs += sm.TotalBuildTimeNs
	}

	summary := map[string]interface{}{
		"uptime_seconds":    time.Since(mc.startTime).Seconds(),
		"total_builds":      builds,
		"failed_builds":     failed,
		"cache_hits":        hits,
		"success_rate":      0.0,
		"avg_build_time_ms": 0.0,
		"cache_hit_ratio":   0.0,
		"services":          len(mc.metrics),
	}

	if builds > 0 {
		summary["success_rate"] = float64(builds-failed) / float64(builds)
		summary["avg_build_time_ms"] = (float64(buildTimeNs) / float64(builds)) / 1e6
	}
	if requests := builds + hits; requests > 0 {
		summary["cache_hit_ratio"] = float64(hits) / float64(requests)
	}

	return summary
}

// ExportMetrics exports metrics in a format suitable for external monitoring
func (mc *MetricsCollector) ExportMetrics() map[string]interface{} {
	return map[string]interface{}{
		"services": mc.GetAllMetrics(),
		"summary":  mc.GetMetricsSummary(),
	}
}

func (sm *ServiceMetrics) copy() *ServiceMetrics {
	c := *sm
	c.VersionChanges = append([]VersionChange(nil), sm.VersionChanges...)
	return &c
}
