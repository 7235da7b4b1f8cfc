package main

import (
	"context"
	"os"

	"github.com/wyfcoding/bloomlab/api"
	"github.com/wyfcoding/bloomlab/app"
	"github.com/wyfcoding/bloomlab/bootstrap"
	"github.com/wyfcoding/bloomlab/cache"
	"github.com/wyfcoding/bloomlab/health"
	"github.com/wyfcoding/bloomlab/idgen"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/middleware"
	"github.com/wyfcoding/bloomlab/render"
	"github.com/wyfcoding/bloomlab/server"
	"github.com/wyfcoding/bloomlab/session"

	"github.com/gin-gonic/gin"
)

// version 在构建时通过 -ldflags "-X main.version=..." 注入。
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	b := bootstrap.New("bloomlab", version)
	defer b.Cleanup()

	if err := b.Initialize(os.Args[1:]); err != nil {
		if b.Logger != nil {
			b.Logger.Error("bootstrap failed", "error", err)
		}
		return err
	}
	cfg := b.Config
	logger := b.Logger

	if cfg.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	b.SetupTracing()
	m := b.SetupMetrics()

	rl, redisClient, err := b.SetupLimiter(ctx, m)
	if err != nil {
		logger.Error("failed to set up rate limiter", "error", err)
		return err
	}

	renderCache, err := cache.New(ctx, cfg.BigCache)
	if err != nil {
		logger.Error("failed to create render cache", "error", err)
		return err
	}

	sessions := session.NewManager(cfg.Session, idgen.Default(), m)
	renderer := render.NewRenderer(cfg.Render, renderCache, m)
	handler, err := api.NewHandler(cfg, sessions, renderer, m)
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		return err
	}

	hr := health.NewRegistry(cfg.Server.Name)
	hr.Register("sessions", health.CapacityChecker(sessions.Len, cfg.Session.MaxSessions))
	if redisClient != nil {
		hr.Register("redis", health.RedisChecker(redisClient))
	}

	middlewares := []gin.HandlerFunc{
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
	}
	if cfg.Tracing.Enabled {
		middlewares = append(middlewares, middleware.TracingMiddleware(cfg.Server.Name))
	}
	middlewares = append(middlewares,
		middleware.Logger(logger.Named("http").Logger),
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{
			SlowThreshold: cfg.Server.HTTP.SlowThreshold,
			SkipPaths:     []string{"/healthz", cfg.Metrics.Path},
		}),
	)
	if rl != nil {
		middlewares = append(middlewares, middleware.RateLimitMiddleware(rl, cfg.RateLimit.Backend, m))
	}
	middlewares = append(middlewares,
		middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes),
		middleware.CORS(),
	)

	engine := server.NewDefaultGinEngine(middlewares...)
	// 配置了独立端口时指标不挂在业务引擎上
	var engineMetrics *metrics.Metrics
	if cfg.Metrics.Enabled && cfg.Metrics.Port == "" {
		engineMetrics = m
	}
	api.RegisterRoutes(engine, handler, hr, engineMetrics, cfg.Metrics.Path)

	application := app.New(cfg.Server.Name, logger.Logger,
		app.WithServer(server.NewGinServer(engine, cfg.Server, logger.Named("server").Logger)),
		app.WithWorker("session-janitor", sessions.Run),
		app.WithCleanup(func() {
			if err := renderCache.Close(); err != nil {
				logger.Error("failed to close render cache", "error", err)
			}
		}),
	)
	return application.Run(ctx)
}
