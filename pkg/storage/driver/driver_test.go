package driver

import (
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

func TestOpenLocalServesMedia(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{PublicBaseURL: "http://localhost:8080"},
		FeatureFlags: config.FeatureFlagsConfig{StorageDriver: "LOCAL"},
		GCS:          config.GCSConfig{BucketName: "products"},
		Storage:      config.StorageConfig{LocalDir: t.TempDir()},
	}

	opened, err := Open(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.MediaHandler == nil {
		t.Fatal("expected media handler for local driver")
	}
	if got := opened.Store.PublicURL("a.png"); !strings.HasPrefix(got, "http://localhost:8080/media/products/") {
		t.Fatalf("unexpected public url %s", got)
	}
	if err := opened.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{FeatureFlags: config.FeatureFlagsConfig{StorageDriver: "s3"}}
	if _, err := Open(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
