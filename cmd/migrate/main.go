package main

// Apply the schema and load SEED_EMPLOYEES into the directory:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"onboarding-backend/internal/employees"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/storage/db"
	"onboarding-backend/internal/shared/telemetry"
)

func main() {
	if err := run(context.Background(), config.Load()); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return err
	}
	target, _ := db.MigrationVersion()

	seeded, err := employees.NewService(&employees.PGRepo{DB: sqlDB}).Seed(ctx, cfg.SeedEmployees)
	if err != nil {
		return err
	}
	telemetry.Info("migrate.ok", map[string]any{"target_version": target, "seeded_employees": seeded})
	return nil
}
