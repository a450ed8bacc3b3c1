package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.Observe("storage-probe", 250*time.Millisecond, nil)
	m.Observe("storage-probe", time.Second, errors.New("bucket missing"))
	m.Observe("", time.Millisecond, nil)
	m.CycleSkipped()

	if got := testutil.ToFloat64(m.runs.WithLabelValues("storage-probe", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("storage-probe", "failure")); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")); got != 1 {
		t.Fatalf("expected blank job name recorded as unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.skipped); got != 1 {
		t.Fatalf("expected one skipped cycle, got %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	hist := histogramFor(mfs, "catalog_cron_job_duration_seconds", "storage-probe")
	if hist == nil || hist.GetSampleCount() != 2 || hist.GetSampleSum() < 1.25 {
		t.Fatalf("unexpected duration histogram: %v", hist)
	}
}

func TestNilCronJobMetricsAreNoop(t *testing.T) {
	var m *CronJobMetrics
	m.Observe("job", time.Second, nil)
	m.CycleSkipped()
	NewCronJobMetrics(nil).Observe("job", time.Second, nil)
}

func histogramFor(mfs []*dto.MetricFamily, name, job string) *dto.Histogram {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetHistogram()
				}
			}
		}
	}
	return nil
}
