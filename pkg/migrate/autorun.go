package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on boot when running in dev with the
// auto-migrate flag on. SQLite databases are built from the models since the
// goose files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "sqlite": cfg.FeatureFlags.UseSQLite})

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		return AutoMigrateModels(client.DB())
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AutoMigrateModels creates every table through GORM. Only meant for SQLite.
func AutoMigrateModels(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
