// Package driver opens the object store selected by the storage driver flag.
package driver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
	"github.com/angelmondragon/catalog-admin/pkg/storage/gcs"
	"github.com/angelmondragon/catalog-admin/pkg/storage/local"
)

// Opened is a ready object store. MediaHandler is set only for the local driver,
// which serves its own objects.
type Opened struct {
	Store        storage.ObjectStore
	MediaHandler http.Handler
	Close        func() error
}

func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Opened, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.FeatureFlags.StorageDriver)) {
	case config.StorageDriverLocal:
		store, err := local.NewStore(cfg.Storage.LocalDir, cfg.GCS.BucketName, cfg.App.PublicBaseURL, logg)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: store, MediaHandler: store.Handler(), Close: func() error { return nil }}, nil
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: client, Close: client.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.FeatureFlags.StorageDriver)
	}
}
