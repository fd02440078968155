package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics records relay upload outcomes.
type UploadMetrics struct {
	duration   *prometheus.HistogramVec
	success    *prometheus.CounterVec
	failure    *prometheus.CounterVec
	chunkBytes prometheus.Histogram
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_duration_seconds",
		Help:    "Duration of upload operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_success",
		Help: "Successful upload operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_failure",
		Help: "Failed upload operations.",
	}, []string{"operation"})
	chunkBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_chunk_bytes",
		Help:    "Size distribution of staged chunks.",
		Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
	})
	reg.MustRegister(duration, success, failure, chunkBytes)
	return &UploadMetrics{
		duration:   duration,
		success:    success,
		failure:    failure,
		chunkBytes: chunkBytes,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *UploadMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *UploadMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *UploadMetrics) IncFailure(operation string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveChunkBytes records the size of one staged chunk.
func (m *UploadMetrics) ObserveChunkBytes(size int64) {
	if m == nil || m.chunkBytes == nil {
		return
	}
	m.chunkBytes.Observe(float64(size))
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
