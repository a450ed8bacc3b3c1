package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/catalog-admin/api/responses"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type storageStatus interface {
	Status(ctx context.Context) (media.ProbeResult, error)
}

type readiness struct {
	Status  string             `json:"status"`
	Checks  map[string]string  `json:"checks"`
	Storage *media.ProbeResult `json:"storage,omitempty"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Catalog-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis and reads the cached storage probe.
// Any failing dependency turns the response into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger, storage storageStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Catalog-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		body := readiness{Status: "ready", Checks: map[string]string{}}
		var failed *pkgerrors.Error
		check := func(name string, p pinger) {
			if p == nil {
				return
			}
			if err := p.Ping(ctx); err != nil {
				body.Checks[name] = err.Error()
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				}
				return
			}
			body.Checks[name] = "ok"
		}
		check("database", database)
		check("redis", cache)

		if storage != nil {
			status, err := storage.Status(ctx)
			switch {
			case err != nil:
				body.Checks["storage"] = err.Error()
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unavailable")
				}
			case !status.Available:
				body.Checks["storage"] = status.Message
				body.Storage = &status
				if failed == nil {
					failed = pkgerrors.New(pkgerrors.CodeDependency, "storage unavailable: "+status.Message)
				}
			default:
				body.Checks["storage"] = "ok"
				body.Storage = &status
			}
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(body.Checks))
			return
		}
		responses.WriteSuccess(w, body)
	}
}
