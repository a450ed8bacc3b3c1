package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type fakeOutboxRepo struct {
	cutoff time.Time
	err    error
}

func (f *fakeOutboxRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeDLQRepo struct {
	cutoff time.Time
	err    error
}

func (f *fakeDLQRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, f.err
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRepo{}
	dlq := &fakeDLQRepo{}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: repo,
		DLQ:        dlq,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(want) || !dlq.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s / %s", want, repo.cutoff, dlq.cutoff)
	}
}

func TestOutboxRetentionJobCombinesErrors(t *testing.T) {
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: &fakeOutboxRepo{err: errors.New("events down")},
		DLQ:        &fakeDLQRepo{err: errors.New("dlq down")},
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	err = jobIface.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	for _, part := range []string{"events down", "dlq down"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("expected %q in %q", part, err.Error())
		}
	}
}

type fakeProbeCache struct {
	result media.ProbeResult
	err    error
	calls  int
}

func (f *fakeProbeCache) Refresh(context.Context) (media.ProbeResult, error) {
	f.calls++
	return f.result, f.err
}

func TestStorageProbeJob(t *testing.T) {
	cache := &fakeProbeCache{result: media.ProbeResult{Available: true, Bucket: "products"}}
	job, err := NewStorageProbeJob(logger.Nop(), cache)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "storage-probe" {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	cache.result = media.ProbeResult{Available: false, Message: "bucket missing"}
	if err := job.Run(context.Background()); err == nil || err.Error() != "bucket missing" {
		t.Fatalf("expected unavailable storage to fail the job, got %v", err)
	}
	if cache.calls != 2 {
		t.Fatalf("expected two refreshes, got %d", cache.calls)
	}
}
