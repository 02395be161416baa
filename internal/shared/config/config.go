package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string
	JWTSecret       string
	MaxUploadBytes  int64

	Extraction ExtractionConfig

	// SupersededRetention of zero keeps superseded documents forever.
	SupersededRetention time.Duration
	SeedEmployees       string
}

// ExtractionConfig selects and tunes the extraction provider.
type ExtractionConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Workers        int
	QueueSize      int
	QueueURL       string
	TokenURL       string
	ClientID       string
	ClientSecret   string
}

const defaultMaxUploadBytes = 10 << 20

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		if env == "production" {
			log.Printf("JWT_SECRET is required in production")
		}
		secret = "dev-secret"
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,
		JWTSecret:       secret,
		MaxUploadBytes:  getInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		Extraction: ExtractionConfig{
			Provider:       normalizeProvider(getEnv("EXTRACTION_PROVIDER", "fake")),
			Model:          getEnv("EXTRACTION_MODEL", ""),
			APIKey:         getEnv("EXTRACTION_API_KEY", ""),
			BaseURL:        getEnv("EXTRACTION_BASE_URL", ""),
			Timeout:        getDuration("EXTRACTION_TIMEOUT", 60*time.Second),
			MaxAttempts:    getInt("EXTRACTION_MAX_ATTEMPTS", 3),
			RetryBaseDelay: getDuration("EXTRACTION_RETRY_BASE_DELAY", 500*time.Millisecond),
			Workers:        getInt("EXTRACTION_WORKERS", 4),
			QueueSize:      getInt("EXTRACTION_QUEUE_SIZE", 64),
			QueueURL:       getEnv("EXTRACTION_QUEUE_URL", ""),
			TokenURL:       getEnv("EXTRACTION_TOKEN_URL", ""),
			ClientID:       getEnv("EXTRACTION_CLIENT_ID", ""),
			ClientSecret:   getEnv("EXTRACTION_CLIENT_SECRET", ""),
		},
		SupersededRetention: getDuration("SUPERSEDED_RETENTION", 0),
		SeedEmployees:       getEnv("SEED_EMPLOYEES", ""),
	}
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if raw == "0" {
		return 0
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	case "http", "service":
		return "http"
	case "none", "disabled", "off":
		return "none"
	default:
		return "fake"
	}
}
