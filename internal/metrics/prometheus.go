package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for PipelineRequests. Failures are labelled with the stage
// that failed.
const (
	OutcomeSuccess = "success"
)

// Metrics contains the Prometheus collectors for the voice chat server
type Metrics struct {
	// Pipeline metrics
	PipelineRequests *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	UploadSize       prometheus.Histogram
	CleanupFailures  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg falls back to the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicechat_pipeline_requests_total",
			Help: "Total number of transcription-and-reply requests by outcome",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicechat_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicechat_upload_size_bytes",
			Help:    "Size of uploaded audio clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		CleanupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicechat_cleanup_failures_total",
			Help: "Total number of temporary file cleanups that reported an error",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicechat_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicechat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordOutcome counts a finished pipeline run.
func (m *Metrics) RecordOutcome(outcome string) {
	m.PipelineRequests.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took, whether or not it succeeded.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordUploadSize records the number of bytes received for a clip
func (m *Metrics) RecordUploadSize(size int64) {
	m.UploadSize.Observe(float64(size))
}

// RecordCleanupFailure increments the cleanup failure counter
func (m *Metrics) RecordCleanupFailure() {
	m.CleanupFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
