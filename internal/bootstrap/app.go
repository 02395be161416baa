package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/documents"
	"onboarding-backend/internal/employees"
	"onboarding-backend/internal/extraction"
	"onboarding-backend/internal/extraction/fake"
	"onboarding-backend/internal/extraction/gemini"
	"onboarding-backend/internal/extraction/httpsvc"
	"onboarding-backend/internal/extraction/openai"
	"onboarding-backend/internal/profiles"
	"onboarding-backend/internal/queue"
	"onboarding-backend/internal/services/health"
	"onboarding-backend/internal/shared/auth"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/server"
	"onboarding-backend/internal/shared/storage/db"
	"onboarding-backend/internal/shared/storage/object"
	localstore "onboarding-backend/internal/shared/storage/object/local"
	s3store "onboarding-backend/internal/shared/storage/object/s3"
	"onboarding-backend/internal/shared/telemetry"
	"onboarding-backend/internal/workerproc"
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Queue     queue.Client
	Tokens    *auth.Tokens
	Extractor *extraction.Client

	DocumentsRepo    documents.Repo
	EmployeesRepo    employees.Repo
	DocumentsService *documents.Service
	EmployeesService *employees.Service
	ProfilesService  *profiles.Service

	// Pool runs extraction in-process when no queue is configured.
	Pool      *documents.Pool
	Processor workerproc.Processor

	DocumentsHandler *documents.Handler
	EmployeesHandler *employees.Handler
	ProfilesHandler  *profiles.Handler
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	provider extraction.Provider
	queue    queue.Client
}

// WithProvider overrides the configured extraction provider.
func WithProvider(p extraction.Provider) Option {
	return func(o *buildOptions) { o.provider = p }
}

// WithQueue overrides the SQS client built from EXTRACTION_QUEUE_URL.
func WithQueue(q queue.Client) Option {
	return func(o *buildOptions) { o.queue = q }
}

// Build wires every dependency and the HTTP router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient := o.queue
	if queueClient == nil {
		queueClient, err = buildQueue(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	provider := o.provider
	if provider == nil {
		provider, err = buildProvider(ctx, cfg.Extraction)
		if err != nil {
			return nil, err
		}
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	extractor := extraction.NewClient(provider,
		extraction.WithMaxAttempts(cfg.Extraction.MaxAttempts),
		extraction.WithRetryBaseDelay(cfg.Extraction.RetryBaseDelay),
		extraction.WithAttemptTimeout(cfg.Extraction.Timeout),
	)

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Queue:     queueClient,
		Tokens:    tokens,
		Extractor: extractor,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	handlers := []server.RouteRegistrar{app.EmployeesHandler, app.DocumentsHandler, app.ProfilesHandler}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Tokens:   tokens,
		Handlers: handlers,
		Health:   health.NewService(sqlDB),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":        cfg.Env,
		"store":      cfg.ObjectStoreType,
		"provider":   app.Extractor.ProviderName(),
		"database":   sqlDB != nil,
		"queue":      queueClient != nil,
		"retention":  cfg.SupersededRetention.String(),
		"max_upload": cfg.MaxUploadBytes,
	})
	return app, nil
}

// Shutdown drains in-process extraction. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Pool == nil {
		return nil
	}
	return a.Pool.Shutdown(ctx)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.Extraction.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.Extraction.QueueURL, cfg.AWSRegion)
}

func buildProvider(ctx context.Context, cfg config.ExtractionConfig) (extraction.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		return gemini.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "http":
		return httpsvc.NewClient(ctx, httpsvc.Config{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		})
	case "none":
		return extraction.Placeholder{}, nil
	default:
		return &fake.Provider{}, nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	var docRepo documents.Repo
	var empRepo employees.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		empRepo = &employees.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		empRepo = employees.NewMemoryRepo()
	}

	empSvc := employees.NewService(empRepo)
	if app.DB == nil {
		n, err := empSvc.Seed(ctx, app.Config.SeedEmployees)
		if err != nil {
			return err
		}
		if n > 0 {
			telemetry.Info("bootstrap.seeded_employees", map[string]any{"count": n})
		}
	}

	docSvc := &documents.Service{
		Store:          app.Store,
		Repo:           docRepo,
		Extractor:      app.Extractor,
		Employees:      empSvc,
		MaxUploadBytes: app.Config.MaxUploadBytes,
		Retention:      app.Config.SupersededRetention,
	}
	if app.Queue != nil {
		docSvc.Dispatcher = &documents.QueueDispatcher{Client: app.Queue}
	} else {
		app.Pool = documents.NewPool(docSvc,
			documents.WithWorkers(app.Config.Extraction.Workers),
			documents.WithQueueSize(app.Config.Extraction.QueueSize),
			documents.WithProcessTimeout(processTimeout(app.Config.Extraction)),
		)
		docSvc.Dispatcher = app.Pool
	}
	empSvc.Documents = docSvc

	profSvc := &profiles.Service{Documents: docSvc, Employees: empSvc}

	app.DocumentsRepo = docRepo
	app.EmployeesRepo = empRepo
	app.DocumentsService = docSvc
	app.EmployeesService = empSvc
	app.ProfilesService = profSvc
	app.Processor = docSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.EmployeesHandler = employees.NewHandler(empSvc)
	app.ProfilesHandler = profiles.NewHandler(profSvc)

	if app.DocumentsHandler == nil || app.EmployeesHandler == nil || app.ProfilesHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// processTimeout covers every attempt plus backoff and settle time.
func processTimeout(cfg config.ExtractionConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 0
	}
	return cfg.Timeout*time.Duration(max(cfg.MaxAttempts, 1)) + time.Minute
}
