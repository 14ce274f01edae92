package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/infra/config"
	"github.com/arklim/social-platform-liveqa/internal/transport/http/handlers"
	"github.com/arklim/social-platform-liveqa/internal/transport/http/middleware"
	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Questions *usecase.QuestionService
	Streams   *usecase.StreamService
	Auth      *usecase.AuthService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Cache       CacheChecker
}

// CacheChecker exposes readiness behaviour for the Redis backend.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("failed to init http metrics", zap.Error(err))
	}

	r.Use(middleware.Identity(deps.Services.Auth, deps.Config.Session.CookieName))

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	isProd := deps.Config.App.Env == "production"

	api := r.Group("/api")
	{
		questionHandler := handlers.NewQuestionHandler(deps.Services.Questions)

		api.GET("/questions", questionHandler.List)
		api.POST("/questions/new", append(writeLimit(deps, "post", deps.Config.RateLimit.CreateMax), questionHandler.Create)...)

		actions := api.Group("/actions")
		actions.POST("/like", append(writeLimit(deps, "like", deps.Config.RateLimit.LikeMax), questionHandler.Like)...)
		actions.POST("/delete", append(writeLimit(deps, "delete", deps.Config.RateLimit.DeleteMax), questionHandler.Delete)...)

		streamHandler := handlers.NewStreamHandler(deps.Services.Streams, deps.Logger)
		api.GET("/stream", streamHandler.Subscribe)
		api.GET("/stream/ws", streamHandler.SubscribeWS)

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Config.Session.CookieName, isProd)
		authGroup := api.Group("/auth")
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	return r
}

// writeLimit builds the sliding-window middleware chain for one write
// endpoint. A zero or negative budget disables the limit.
func writeLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.RequestIdentity(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
