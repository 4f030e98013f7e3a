package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorRecordBuild(t *testing.T) {
	mc := NewMetricsCollector()
	now := time.Now()

	mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: true, BuildTimeNs: 300, Version: "a", TypeCount: 4, Timestamp: now})
	mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: true, BuildTimeNs: 100, Version: "b", TypeCount: 5, Timestamp: now})
	mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: false, BuildTimeNs: 200, Error: "boom", Timestamp: now})
	mc.RecordBuild(nil)

	sm, err := mc.GetServiceMetrics("Shop")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sm.TotalBuilds)
	assert.Equal(t, int64(1), sm.FailedBuilds)
	assert.Equal(t, int64(100), sm.MinBuildTimeNs)
	assert.Equal(t, int64(300), sm.MaxBuildTimeNs)
	assert.Equal(t, int64(200), sm.AvgBuildTimeNs)
	assert.Equal(t, "b", sm.CurrentVersion)
	assert.Equal(t, 5, sm.TypeCount)
	assert.Equal(t, "boom", sm.LastError)
	require.Len(t, sm.VersionChanges, 1)
	assert.Equal(t, "a", sm.VersionChanges[0].FromVersion)
	assert.Equal(t, "b", sm.VersionChanges[0].ToVersion)

	_, err = mc.GetServiceMetrics("missing")
	assert.ErrorIs(t, err, ErrServiceMetricsNotFound)
}

func TestMetricsCollectorVersionChangesCapped(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < maxVersionChanges+10; i++ {
		mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: true, Version: fmt.Sprint(i), Timestamp: time.Now()})
	}

	sm, err := mc.GetServiceMetrics("Shop")
	require.NoError(t, err)
	assert.Len(t, sm.VersionChanges, maxVersionChanges)
	assert.Equal(t, fmt.Sprint(maxVersionChanges+9), sm.CurrentVersion)
}

func TestMetricsCollectorSummary(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordBuild(&BuildMetrics{Service: "Tools", Success: true, BuildTimeNs: 2e6, Version: "a", Timestamp: time.Now()})
	mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: false, BuildTimeNs: 4e6, Timestamp: time.Now()})
	mc.RecordCacheHit("Tools")
	mc.RecordCacheHit("Tools")

	summary := mc.GetMetricsSummary()
	assert.Equal(t, int64(2), summary["total_builds"])
	assert.Equal(t, int64(1), summary["failed_builds"])
	assert.Equal(t, int64(2), summary["cache_hits"])
	assert.Equal(t, 0.5, summary["success_rate"])
	assert.Equal(t, 3.0, summary["avg_build_time_ms"])
	assert.Equal(t, 0.5, summary["cache_hit_ratio"])
	assert.Equal(t, 2, summary["services"])

	all := mc.GetAllMetrics()
	require.Len(t, all, 2)
	assert.Equal(t, "Shop", all[0].Service)
	assert.Equal(t, "Tools", all[1].Service)

	exported := mc.ExportMetrics()
	assert.Contains(t, exported, "services")
	assert.Contains(t, exported, "summary")
}

func TestMetricsCollectorReturnsCopies(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordBuild(&BuildMetrics{Service: "Shop", Success: true, Version: "a", Timestamp: time.Now()})

	sm, err := mc.GetServiceMetrics("Shop")
	require.NoError(t, err)
	sm.TotalBuilds = 99

	again, err := mc.GetServiceMetrics("Shop")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.TotalBuilds)
}
