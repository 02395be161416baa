package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/services/health"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"

	rateGroupUpload = "UPLOAD"
	rateGroupRead   = "READ"
)

// RouteRegistrar attaches a feature's routes under /api/v1.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	Config   config.Config
	Tokens   middleware.TokenVerifier
	Handlers []RouteRegistrar
	Health   *health.Service
	// Limiter is shared across requests; nil builds a fresh one.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Tokens, healthPath, metricsPath),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupRead,
			GroupFor:     rateGroup,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupUpload: {Rate: 0.5, Burst: 10},
				rateGroupRead:   {Rate: 10, Burst: 40},
			},
		}),
	)

	r.GET(metricsPath, metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		body, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, body)
	})
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// rateGroup puts uploads on the tighter bucket.
func rateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/documents") {
		return rateGroupUpload
	}
	return rateGroupRead
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
