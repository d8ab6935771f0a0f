package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/persistorai/friendgraph/internal/dbpool"
	"github.com/persistorai/friendgraph/internal/domain"
	"github.com/persistorai/friendgraph/internal/middleware"
	"github.com/persistorai/friendgraph/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log       *logrus.Logger
	Pool      *dbpool.Pool // nil in memory mode
	Hub       *ws.Hub
	Crawls    domain.CrawlService
	Analytics domain.AnalyticsService
	Jobs      JobCounter
	// Checks are extra readiness probes, e.g. the source cache.
	Checks      map[string]ReadinessCheck
	CORSOrigins []string
	APIKey      string
	Version     string
	ServiceName string
}

// Router-level limits.
const (
	maxBodySize = 1 << 20 // 1 MB
	rateLimit   = 50      // requests per second per IP
	rateBurst   = 100     // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))

	// cors.New panics on an empty origin list; no origins means same-origin only.
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			MaxAge:           1 * time.Hour,
			AllowCredentials: false,
		}))
	}

	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, deps.Jobs, log, deps.Version, deps.Checks)
	crawls := NewCrawlHandler(deps.Crawls, log)
	reports := NewAnalyticsHandler(deps.Analytics, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	if deps.APIKey != "" {
		guard := middleware.NewLockoutGuard(ctx, log)
		api.Use(middleware.LockoutMiddleware(guard))
		api.Use(middleware.APIKeyAuth(deps.APIKey, log, guard))
	}

	// Crawl runs.
	api.POST("/crawls", crawls.Create)
	api.GET("/crawls", crawls.List)
	api.GET("/crawls/:id", crawls.Get)
	api.DELETE("/crawls/:id", crawls.Delete)
	api.GET("/crawls/:id/graph", crawls.Graph)
	api.GET("/crawls/:id/analytics", reports.Report)

	// WebSocket endpoint.
	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	if deps.ServiceName == "" {
		deps.ServiceName = "friendgraph"
	}

	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
