package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"ENV", "MAX_UPLOAD_BYTES", "EXTRACTION_PROVIDER", "EXTRACTION_TIMEOUT", "EXTRACTION_MAX_ATTEMPTS", "SUPERSEDED_RETENTION", "JWT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MiB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Extraction.Provider != "fake" {
		t.Fatalf("expected fake provider, got %q", cfg.Extraction.Provider)
	}
	if cfg.Extraction.Timeout != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %s", cfg.Extraction.Timeout)
	}
	if cfg.Extraction.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Extraction.MaxAttempts)
	}
	if cfg.SupersededRetention != 0 {
		t.Fatalf("expected retention forever, got %s", cfg.SupersededRetention)
	}
	if cfg.JWTSecret != "dev-secret" {
		t.Fatalf("expected dev secret fallback, got %q", cfg.JWTSecret)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("EXTRACTION_PROVIDER", "Gemini")
	t.Setenv("EXTRACTION_TIMEOUT", "5s")
	t.Setenv("EXTRACTION_MAX_ATTEMPTS", "nope")
	t.Setenv("SUPERSEDED_RETENTION", "720h")

	cfg := Load()
	if cfg.Env != "production" || cfg.IsDevLike() {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Fatalf("expected 1024, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Extraction.Provider != "gemini" {
		t.Fatalf("expected gemini, got %q", cfg.Extraction.Provider)
	}
	if cfg.Extraction.Timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.Extraction.Timeout)
	}
	if cfg.Extraction.MaxAttempts != 3 {
		t.Fatalf("expected fallback to 3 attempts, got %d", cfg.Extraction.MaxAttempts)
	}
	if cfg.SupersededRetention != 720*time.Hour {
		t.Fatalf("expected 720h, got %s", cfg.SupersededRetention)
	}
}

func TestLoadEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nS3_PREFIX=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("S3_PREFIX", "")
	os.Unsetenv("S3_PREFIX")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected process env to win, got %q", cfg.Port)
	}
	if cfg.S3Prefix != "from-file" {
		t.Fatalf("expected value from .env, got %q", cfg.S3Prefix)
	}
}
