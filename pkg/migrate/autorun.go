package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

// MaybeRun applies migrations at startup when the auto-migrate flag is set.
// Postgres is only migrated automatically in dev; SQLite is always bootstrapped.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if client.Dialect() == db.DialectPostgres && !cfg.App.IsDev() {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "db_dialect": client.Dialect()})
	logg.Info(ctx, "running schema migrations (auto-run)")

	if err := Up(ctx, client); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}
