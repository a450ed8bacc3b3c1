package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/catalog-admin/api/responses"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type storageRefresher interface {
	Refresh(ctx context.Context) (media.ProbeResult, error)
}

// StorageProbe runs the readiness probe now and returns its result. An unavailable
// bucket is reported in the body, not as an error status. A failure to cache the
// result is only logged.
func StorageProbe(probe storageRefresher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := probe.Refresh(r.Context())
		if err != nil && logg != nil {
			logg.Error(r.Context(), "storage.probe.cache_failed", err)
		}
		responses.WriteSuccess(w, result)
	}
}
