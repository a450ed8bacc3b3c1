package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUploadMetricsCountsResults(t *testing.T) {
	m := NewUploadMetrics(prometheus.NewRegistry())

	m.ObserveFile("image", 1024, nil)
	m.ObserveFile("image", 2048, errors.New("boom"))
	m.ObserveFile("video", 4096, nil)
	m.ObserveBatch(2 * time.Second)
	m.SetStorageAvailable(true)

	if got := testutil.ToFloat64(m.files.WithLabelValues("image", "failure")); got != 1 {
		t.Fatalf("expected one image failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.files.WithLabelValues("video", "success")); got != 1 {
		t.Fatalf("expected one video success, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("image")); got != 1024 {
		t.Fatalf("failed uploads must not count bytes, got %v", got)
	}
	if got := testutil.ToFloat64(m.probe); got != 1 {
		t.Fatalf("expected storage available gauge set to 1, got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Fatalf("expected batch histogram collected, got %d", got)
	}

	m.SetStorageAvailable(false)
	if got := testutil.ToFloat64(m.probe); got != 0 {
		t.Fatalf("expected gauge reset to 0, got %v", got)
	}
}

func TestNilUploadMetricsAreNoop(t *testing.T) {
	var m *UploadMetrics
	m.ObserveFile("image", 1, nil)
	m.ObserveBatch(time.Second)
	m.SetStorageAvailable(false)
	NewUploadMetrics(nil).ObserveFile("image", 1, nil)
}
