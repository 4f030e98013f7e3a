package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Metadata build metrics
	MetadataBuilds        *prometheus.CounterVec
	MetadataBuildDuration *prometheus.HistogramVec
	MetadataCacheHits     *prometheus.CounterVec
	MetadataTypes         *prometheus.GaugeVec
	MetadataSnapshots     *prometheus.CounterVec

	// Publishing metrics
	PublishTotal *prometheus.CounterVec
}

var (
	metrics *PrometheusMetrics
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics() {
	metrics = NewPrometheusMetrics(prometheus.DefaultRegisterer)
}

// NewPrometheusMetrics creates the metrics and registers them with reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breeze_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breeze_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		MetadataBuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_metadata_builds_total",
				Help: "Total number of metadata document builds",
			},
			[]string{"service", "status"},
		),
		MetadataBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breeze_metadata_build_duration_seconds",
				Help:    "Metadata document build time in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"service"},
		),
		MetadataCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_metadata_cache_hits_total",
				Help: "Total number of metadata documents served from cache",
			},
			[]string{"service"},
		),
		MetadataTypes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breeze_metadata_structural_types",
				Help: "Number of structural types in the latest metadata document",
			},
			[]string{"service"},
		),
		MetadataSnapshots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_metadata_snapshots_total",
				Help: "Total number of stored metadata versions",
			},
			[]string{"service"},
		),

		PublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_publish_total",
				Help: "Total number of metadata documents published",
			},
			[]string{"target", "status"},
		),
	}
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()

		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)

		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordMetadataBuild records a metadata document build
func RecordMetadataBuild(service string, success bool, duration time.Duration, typeCount int) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "error"
	}
	metrics.MetadataBuilds.WithLabelValues(service, status).Inc()
	metrics.MetadataBuildDuration.WithLabelValues(service).Observe(duration.Seconds())
	if success {
		metrics.MetadataTypes.WithLabelValues(service).Set(float64(typeCount))
	}
}

// RecordMetadataCacheHit records a metadata document served from cache
func RecordMetadataCacheHit(service string) {
	if metrics == nil {
		return
	}

	metrics.MetadataCacheHits.WithLabelValues(service).Inc()
}

// RecordMetadataSnapshot records a newly stored metadata version
func RecordMetadataSnapshot(service string) {
	if metrics == nil {
		return
	}

	metrics.MetadataSnapshots.WithLabelValues(service).Inc()
}

// RecordPublish records a publish attempt to a target
func RecordPublish(target string, success bool) {
	if metrics == nil {
		return
	}

	if success {
		metrics.PublishTotal.WithLabelValues(target, "success").Inc()
	} else {
		metrics.PublishTotal.WithLabelValues(target, "error").Inc()
	}
}
