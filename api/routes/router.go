package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catalog-admin/api/controllers"
	"github.com/angelmondragon/catalog-admin/api/middleware"
	"github.com/angelmondragon/catalog-admin/internal/adminusers"
	"github.com/angelmondragon/catalog-admin/internal/auth"
	"github.com/angelmondragon/catalog-admin/internal/catalogform"
	"github.com/angelmondragon/catalog-admin/internal/categories"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/internal/products"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	pkgredis "github.com/angelmondragon/catalog-admin/pkg/redis"
	"github.com/angelmondragon/catalog-admin/pkg/storage/local"
)

const (
	multipartOverhead = 1 << 20
	idempotencyTTL    = 24 * time.Hour
)

type pinger interface {
	Ping(ctx context.Context) error
}

type storageProbe interface {
	Status(ctx context.Context) (media.ProbeResult, error)
	Refresh(ctx context.Context) (media.ProbeResult, error)
}

// Dependencies carries everything the router wires into handlers.
// Gatherer and MediaHandler are optional.
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           pinger
	Redis        pinger
	Idempotency  pkgredis.IdempotencyStore
	Sessions     session.Loader
	Auth         auth.Service
	Admins       adminusers.Service
	Categories   categories.Service
	Products     products.Service
	Forms        *catalogform.Controller
	Progress     *media.ProgressTracker
	Storage      storageProbe
	Gatherer     prometheus.Gatherer
	MediaHandler http.Handler
}

// baseMiddleware runs on every route. The request id comes first so panic and
// request logs both carry it.
func baseMiddleware(cfg *config.Config, logg *logger.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	}
}

func NewRouter(d Dependencies) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(baseMiddleware(cfg, logg)...)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis, d.Storage))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.MediaHandler != nil {
		r.Handle(local.MediaPathPrefix+"*", d.MediaHandler)
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, cfg.JWT, logg))
			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Get("/me", controllers.AuthMe(logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			idempotent := middleware.Idempotency(d.Idempotency, idempotencyTTL, logg)

			r.Get("/admin-users", controllers.AdminUsersList(d.Admins, logg))
			r.With(idempotent).Post("/admin-users", controllers.AdminUsersCreate(d.Admins, logg))

			r.Get("/categories", controllers.CategoriesList(d.Categories, logg))
			r.With(idempotent).Post("/categories", controllers.CategoriesCreate(d.Forms, logg))
			r.Put("/categories/{id}", controllers.CategoriesUpdate(d.Forms, logg))
			r.Delete("/categories/{id}", controllers.CategoriesDelete(d.Forms, logg))

			bodyLimit := middleware.LimitBody(maxProductBody(cfg.Media))
			r.Get("/products", controllers.ProductsList(d.Products, logg))
			r.Get("/products/form", controllers.ProductsNewForm(d.Forms, logg))
			r.Get("/products/{id}/form", controllers.ProductsEditForm(d.Forms, logg))
			r.With(bodyLimit, idempotent).Post("/products", controllers.ProductsCreate(d.Forms, d.Progress, logg))
			r.With(bodyLimit).Put("/products/{id}", controllers.ProductsUpdate(d.Forms, d.Progress, logg))
			r.Delete("/products/{id}", controllers.ProductsDelete(d.Forms, logg))

			r.Get("/uploads/{uploadID}/progress", controllers.UploadProgress(d.Progress, logg))
			r.Get("/storage/probe", controllers.StorageProbe(d.Storage, logg))
		})
	})

	return r
}

func maxProductBody(cfg config.MediaConfig) int64 {
	perFile := cfg.MaxVideoBytes()
	if img := cfg.MaxImageBytes(); img > perFile {
		perFile = img
	}
	files := int64(cfg.MaxFiles)
	if files <= 0 {
		files = 1
	}
	return files*perFile + multipartOverhead
}
