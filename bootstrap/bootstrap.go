// Package bootstrap 负责进程级基础设施的初始化：命令行、配置、日志、追踪、指标、ID 生成与限流。
package bootstrap

import (
	"context"
	"flag"
	"fmt"

	"github.com/wyfcoding/bloomlab/breaker"
	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/idgen"
	"github.com/wyfcoding/bloomlab/limiter"
	"github.com/wyfcoding/bloomlab/logging"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/redis"
	"github.com/wyfcoding/bloomlab/tracing"

	goredis "github.com/redis/go-redis/v9"
)

// Bootstrapper 处理通用基础设施的初始化，并按逆序释放资源。
type Bootstrapper struct {
	ServiceName string
	Version     string
	Config      *config.Config
	Logger      *logging.Logger

	cleanups []func()
}

// New 创建一个新的引导器实例。
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
		Config:      config.Default(),
	}
}

// Initialize 解析命令行标志、加载配置文件并初始化日志与 ID 生成器。
// 未指定配置文件时使用内置默认值与 APP_ 环境变量。
func (b *Bootstrapper) Initialize(args []string) error {
	fs := flag.NewFlagSet(b.ServiceName, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.Load(*configPath, b.Config); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if b.Config.Version == "" {
		b.Config.Version = b.Version
	}

	b.Logger = logging.InitLogger(logging.Config{
		Service:    b.Config.Server.Name,
		Module:     "bootstrap",
		Level:      b.Config.Log.Level,
		Output:     b.Config.Log.Output,
		File:       b.Config.Log.File,
		MaxSize:    b.Config.Log.MaxSize,
		MaxBackups: b.Config.Log.MaxBackups,
		MaxAge:     b.Config.Log.MaxAge,
		Compress:   b.Config.Log.Compress,
	})
	b.Logger.Info("configuration loaded", "path", *configPath, "environment", b.Config.Server.Environment)

	if err := idgen.Init(b.Config.Snowflake); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}
	return nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器。初始化失败时仅记录日志，不阻断启动。
func (b *Bootstrapper) SetupTracing() {
	cfg := b.Config.Tracing
	if cfg.ServiceName == "" {
		cfg.ServiceName = b.Config.Server.Name
	}
	shutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return
	}
	b.addCleanup(func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	})
}

// SetupMetrics 创建指标注册表。配置了独立端口时额外启动指标服务器。
func (b *Bootstrapper) SetupMetrics() *metrics.Metrics {
	m := metrics.NewMetrics(b.Config.Server.Name)
	m.RegisterBuildInfo(b.Config.Server.Name, b.Config.Version)
	if b.Config.Metrics.Enabled && b.Config.Metrics.Port != "" {
		b.addCleanup(m.ExposeHTTP(b.Config.Metrics.Port, b.Config.Metrics.Path))
	}
	return m
}

// SetupLimiter 按配置构造限流器。未启用时返回 nil。
// redis 后端会建立连接，并返回客户端供健康检查使用。
func (b *Bootstrapper) SetupLimiter(ctx context.Context, m *metrics.Metrics) (limiter.Limiter, *goredis.Client, error) {
	cfg := b.Config.RateLimit
	if !cfg.Enabled {
		return nil, nil, nil
	}
	if cfg.Backend != "redis" {
		l, err := limiter.New(cfg, nil, nil)
		return l, nil, err
	}

	client, cleanup, err := redis.NewClient(ctx, b.Config.Redis, m, b.Logger.Named("redis"))
	if err != nil {
		return nil, nil, err
	}
	b.addCleanup(cleanup)

	brk := breaker.NewBreaker(breaker.Settings{Name: "ratelimit-redis", Config: b.Config.CircuitBreaker}, m)
	l, err := limiter.New(cfg, client, brk)
	if err != nil {
		return nil, nil, err
	}
	return l, client, nil
}

// Cleanup 按注册逆序释放资源。
func (b *Bootstrapper) Cleanup() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}

func (b *Bootstrapper) addCleanup(fn func()) {
	b.cleanups = append(b.cleanups, fn)
}
