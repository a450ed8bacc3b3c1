package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/metrics"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
	goredis "github.com/redis/go-redis/v9"
)

// ProbeResult reports whether object storage can accept uploads.
type ProbeResult struct {
	Available bool      `json:"available"`
	Message   string    `json:"message"`
	Bucket    string    `json:"bucket"`
	TestURL   string    `json:"test_url,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Prober checks storage readiness by round-tripping a small test object.
type Prober struct {
	store   storage.ObjectStore
	metrics *metrics.UploadMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewProber builds a readiness prober for store. metrics may be nil.
func NewProber(store storage.ObjectStore, uploadMetrics *metrics.UploadMetrics, logg *logger.Logger) (*Prober, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Prober{store: store, metrics: uploadMetrics, logg: logg, now: time.Now}, nil
}

// Probe checks the bucket exists, uploads test/test-<unixmillis>.txt without overwrite,
// resolves its public URL and deletes it again. A failed delete only logs a warning.
func (p *Prober) Probe(ctx context.Context) ProbeResult {
	now := p.now().UTC()
	bucket := p.store.Bucket()
	result := ProbeResult{Bucket: bucket, CheckedAt: now}
	ctx = p.logg.WithField(ctx, "bucket", bucket)

	exists, err := p.store.BucketExists(ctx)
	if err != nil {
		return p.fail(ctx, result, "unable to list storage buckets: "+err.Error(), err)
	}
	if !exists {
		return p.fail(ctx, result, fmt.Sprintf("bucket %q not found; create it before uploading media", bucket), nil)
	}

	key := fmt.Sprintf("test/test-%d.txt", now.UnixMilli())
	if err := p.store.Upload(ctx, key, "text/plain", strings.NewReader("test")); err != nil {
		return p.fail(ctx, result, "test upload failed; check bucket permissions: "+err.Error(), err)
	}
	result.TestURL = p.store.PublicURL(key)

	if err := p.store.Delete(ctx, key); err != nil {
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "storage.probe.cleanup_failed")
	}

	result.Available = true
	result.Message = "storage is configured correctly"
	p.metrics.SetStorageAvailable(true)
	p.logg.Info(ctx, "storage.probe.ok")
	return result
}

func (p *Prober) fail(ctx context.Context, result ProbeResult, message string, err error) ProbeResult {
	result.Available = false
	result.Message = message
	p.metrics.SetStorageAvailable(false)
	if err == nil {
		err = errors.New(message)
	}
	p.logg.Error(ctx, "storage.probe.failed", err)
	return result
}

type probeCacheStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	StorageProbeKey() string
}

// ProbeCache keeps the latest probe result in Redis so readers avoid a storage round trip.
type ProbeCache struct {
	prober *Prober
	store  probeCacheStore
	ttl    time.Duration
}

// NewProbeCache wraps prober with a Redis-backed result cache.
func NewProbeCache(prober *Prober, store probeCacheStore, ttl time.Duration) (*ProbeCache, error) {
	if prober == nil {
		return nil, fmt.Errorf("prober required")
	}
	if store == nil {
		return nil, fmt.Errorf("probe cache store required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ProbeCache{prober: prober, store: store, ttl: ttl}, nil
}

// Refresh runs the probe and stores its result.
func (c *ProbeCache) Refresh(ctx context.Context) (ProbeResult, error) {
	result := c.prober.Probe(ctx)
	payload, err := json.Marshal(result)
	if err != nil {
		return result, fmt.Errorf("encode probe result: %w", err)
	}
	if err := c.store.Set(ctx, c.store.StorageProbeKey(), string(payload), c.ttl); err != nil {
		return result, fmt.Errorf("cache probe result: %w", err)
	}
	return result, nil
}

// Status returns the cached result, probing when nothing usable is cached.
func (c *ProbeCache) Status(ctx context.Context) (ProbeResult, error) {
	raw, err := c.store.Get(ctx, c.store.StorageProbeKey())
	switch {
	case err == nil:
		var cached ProbeResult
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil && !cached.CheckedAt.IsZero() {
			return cached, nil
		}
	case !errors.Is(err, goredis.Nil):
		return ProbeResult{}, err
	}
	return c.Refresh(ctx)
}
