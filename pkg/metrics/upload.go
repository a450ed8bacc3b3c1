package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics tracks media uploads to object storage.
type UploadMetrics struct {
	files    *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	duration prometheus.Histogram
	probe    prometheus.Gauge
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "media",
		Name:      "upload_files_total",
		Help:      "Media files processed by the uploader, by file type and result.",
	}, []string{"file_type", "result"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "media",
		Name:      "upload_bytes_total",
		Help:      "Bytes written to object storage.",
	}, []string{"file_type"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "media",
		Name:      "upload_batch_duration_seconds",
		Help:      "Duration of a full upload batch.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	probe := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "media",
		Name:      "storage_available",
		Help:      "1 when the last storage readiness probe succeeded.",
	})
	reg.MustRegister(files, bytes, duration, probe)
	return &UploadMetrics{files: files, bytes: bytes, duration: duration, probe: probe}
}

// ObserveFile records the outcome of one file upload.
func (u *UploadMetrics) ObserveFile(fileType string, size int64, err error) {
	if u == nil || u.files == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	if fileType == "" {
		fileType = "unknown"
	}
	u.files.WithLabelValues(fileType, result).Inc()
	if err == nil && size > 0 {
		u.bytes.WithLabelValues(fileType).Add(float64(size))
	}
}

// ObserveBatch records the duration of an upload batch.
func (u *UploadMetrics) ObserveBatch(d time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	u.duration.Observe(d.Seconds())
}

// SetStorageAvailable publishes the latest probe result.
func (u *UploadMetrics) SetStorageAvailable(ok bool) {
	if u == nil || u.probe == nil {
		return
	}
	if ok {
		u.probe.Set(1)
		return
	}
	u.probe.Set(0)
}
