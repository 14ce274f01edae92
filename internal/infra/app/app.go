package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/port"
	businfra "github.com/arklim/social-platform-liveqa/internal/infra/bus"
	"github.com/arklim/social-platform-liveqa/internal/infra/config"
	kafkainfra "github.com/arklim/social-platform-liveqa/internal/infra/kafka"
	"github.com/arklim/social-platform-liveqa/internal/infra/logger"
	redisinfra "github.com/arklim/social-platform-liveqa/internal/infra/redis"
	"github.com/arklim/social-platform-liveqa/internal/infra/telemetry"
	redisrepo "github.com/arklim/social-platform-liveqa/internal/repository/redis"
	"github.com/arklim/social-platform-liveqa/internal/transport/http/middleware"
	"github.com/arklim/social-platform-liveqa/internal/transport/http/routes"
	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	redis     *redisinfra.Client
	bus       port.EventBus
	closeBus  func() error
	telemetry *telemetry.Provider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tel, err := telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	localBus := businfra.NewLocalBus(cfg.Stream.SubscriberBuffer, log)

	var eventBus port.EventBus = localBus
	closeBus := func() error {
		localBus.Close()
		return nil
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaBus, err := kafkainfra.NewBus(cfg.Kafka, cfg.App, localBus, log)
		if err != nil {
			log.Warn("failed to init kafka bus, events stay process-local", zap.Error(err))
		} else {
			eventBus = kafkaBus
			closeBus = kafkaBus.Close
			log.Info("kafka event bridge initialized",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.Topic),
			)
		}
	} else {
		log.Info("kafka brokers not configured, events stay process-local")
	}

	questionRepo := redisrepo.NewQuestionRepository(redisClient.Client())
	viewCache := redisrepo.NewViewCacheRepository(redisClient.Client(), "questions:latest")
	sessionRepo := redisrepo.NewSessionRepository(redisClient.Client())

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "liveqa:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	questionService := usecase.NewQuestionService(questionRepo, viewCache, eventBus, cfg.Cache.LatestTTL, cfg.Cache.LatestLimit, log)
	streamService := usecase.NewStreamService(questionService, eventBus, usecase.StreamConfig{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		ReconcileInterval: cfg.Stream.ReconcileInterval,
	}, log)
	authService := usecase.NewAuthService(sessionRepo, cfg.Session.TTL, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Questions: questionService,
			Streams:   streamService,
			Auth:      authService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		redis:     redisClient,
		bus:       eventBus,
		closeBus:  closeBus,
		telemetry: tel,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.closeBus != nil {
			if err := a.closeBus(); err != nil {
				a.logger.Warn("event bus shutdown failed", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.telemetry != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: /api/stream connections are long-lived.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("starting live Q&A API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
