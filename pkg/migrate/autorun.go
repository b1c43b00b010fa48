package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/partyhub-backend/pkg/config"
	dbpkg "github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations in dev when PARTYHUB_AUTO_MIGRATE is set.
// sqlite deployments have no goose history and are built from the model registry.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *dbpkg.Client) error {
	if cfg.DB.Driver == config.DBDriverSQLite {
		return AutoMigrateSQLite(ctx, logg, client)
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, Migrations())
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}

	versions := make([]int64, 0, len(applied))
	for _, step := range applied {
		versions = append(versions, step.Version)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "applied": versions}), "migrate.dev_autorun.complete")
	return nil
}

// AutoMigrateSQLite creates every table of the model registry on the sqlite connection.
func AutoMigrateSQLite(ctx context.Context, logg *logger.Logger, client *dbpkg.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating sqlite schema: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "sqlite schema migrated")
	}
	return nil
}
