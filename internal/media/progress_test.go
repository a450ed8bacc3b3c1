package media

import (
	"context"
	"testing"
	"time"
)

func TestProgressTrackerRoundTrip(t *testing.T) {
	redis := newFakeRedis()
	tracker, err := NewProgressTracker(redis, 30*time.Minute)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := tracker.Get(ctx, "batch-1"); err != nil || ok {
		t.Fatalf("expected no progress yet, ok=%v err=%v", ok, err)
	}

	sink := tracker.Sink("batch-1")
	if err := sink.Report(ctx, 40); err != nil {
		t.Fatalf("report: %v", err)
	}
	value, ok, err := tracker.Get(ctx, "batch-1")
	if err != nil || !ok || value != 40 {
		t.Fatalf("unexpected progress %d ok=%v err=%v", value, ok, err)
	}
	if redis.ttls["progress:batch-1"] != 30*time.Minute {
		t.Fatalf("expected ttl on progress key")
	}
}

func TestProgressTrackerBlankUploadID(t *testing.T) {
	tracker, err := NewProgressTracker(newFakeRedis(), 0)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	if sink := tracker.Sink("  "); sink != nil {
		t.Fatalf("expected nil sink for blank upload id")
	}
}
