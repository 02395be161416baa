package main

// Delete superseded uploads older than SUPERSEDED_RETENTION:
//   go run ./cmd/prune

import (
	"context"
	"log"
	"time"

	"onboarding-backend/internal/bootstrap"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if cfg.SupersededRetention <= 0 {
		telemetry.Info("prune.disabled", map[string]any{"reason": "SUPERSEDED_RETENTION not set"})
		return
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	removed, err := app.DocumentsService.PruneSuperseded(ctx)
	if err != nil {
		log.Fatalf("prune: %v (removed %d before failing)", err, removed)
	}
	telemetry.Info("prune.ok", map[string]any{
		"removed":    removed,
		"retention":  cfg.SupersededRetention.String(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}
