package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type progressStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	UploadProgressKey(uploadID string) string
}

// ProgressTracker publishes upload percentages to Redis so clients can poll them.
type ProgressTracker struct {
	store progressStore
	ttl   time.Duration
}

// NewProgressTracker builds a tracker whose entries expire after ttl.
func NewProgressTracker(store progressStore, ttl time.Duration) (*ProgressTracker, error) {
	if store == nil {
		return nil, fmt.Errorf("progress store required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProgressTracker{store: store, ttl: ttl}, nil
}

// Sink returns the progress sink for one upload batch. A blank upload id discards progress.
func (t *ProgressTracker) Sink(uploadID string) ProgressSink {
	uploadID = strings.TrimSpace(uploadID)
	if t == nil || uploadID == "" {
		return nil
	}
	return &RedisProgressSink{tracker: t, uploadID: uploadID}
}

// Get returns the latest percentage and whether one was recorded.
func (t *ProgressTracker) Get(ctx context.Context, uploadID string) (int, bool, error) {
	raw, err := t.store.Get(ctx, t.store.UploadProgressKey(uploadID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return value, true, nil
}

// RedisProgressSink stores the latest percentage of one upload batch.
type RedisProgressSink struct {
	tracker  *ProgressTracker
	uploadID string
}

// Report implements ProgressSink.
func (s *RedisProgressSink) Report(ctx context.Context, percent int) error {
	key := s.tracker.store.UploadProgressKey(s.uploadID)
	return s.tracker.store.Set(ctx, key, strconv.Itoa(percent), s.tracker.ttl)
}
