// Package redis 提供 Redis 客户端构造与命令耗时采集，仅在分布式限流后端启用时使用.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/logging"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/retry"

	"github.com/redis/go-redis/v9"
)

// Client 是 redis.Client 的别名，方便业务层直接使用而无需导入原生包
type Client = redis.Client

type metricsHook struct {
	m *metrics.Metrics
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), start)
		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", start)
		return err
	}
}

func (h *metricsHook) observe(command string, start time.Time) {
	if h.m == nil || h.m.RedisCommandDuration == nil {
		return
	}
	h.m.RedisCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

// New 仅构造客户端并挂载指标 Hook，不做连通性检查.
func New(cfg config.RedisConfig, m *metrics.Metrics) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	m.RegisterRedisMetrics()
	client.AddHook(&metricsHook{m: m})
	return client
}

// NewClient 使用提供的配置创建一个新的 Redis 客户端并 Ping 验证。
// 返回客户端、清理函数和连接失败时的错误。
func NewClient(ctx context.Context, cfg config.RedisConfig, m *metrics.Metrics, logger *logging.Logger) (*redis.Client, func(), error) {
	client := New(cfg, m)

	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("successfully connected to Redis", "addr", client.Options().Addr)

	cleanup := func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Error("failed to close Redis client", "error", err)
		}
	}

	return client, cleanup, nil
}
