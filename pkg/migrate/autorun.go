package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/store-manager/pkg/config"
	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/logger"
)

// MaybeRunDev applies pending migrations when the app runs in dev mode with
// auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	return Up(ctx, logg, client, DefaultDir)
}

// Up applies every pending migration for the client's driver.
func Up(ctx context.Context, logg *logger.Logger, client *db.Client, base string) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dir := DirFor(base, client.Driver())
	ctx = logg.WithFields(ctx, map[string]any{"driver": client.Driver(), "dir": dir})
	logg.Info(ctx, "running goose migrations")

	if err := Run(ctx, sqlDB, client.Driver(), dir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
