// Package limiter 提供了请求限流器的实现.
// 生成摘要:
// 1) local 后端使用进程内令牌桶，按 key 隔离。
// 2) redis 后端使用 ZSet + Lua 滑动窗口，多实例共享状态。
// 3) Guarded 以熔断器包裹后端，依赖故障时放行请求。
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/wyfcoding/bloomlab/breaker"
	"github.com/wyfcoding/bloomlab/config"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter 接口定义了限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 是一个基于令牌桶算法的本地限流器，每个 key 拥有独立的桶。
type LocalLimiter struct {
	buckets sync.Map // key -> *rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLocalLimiter 创建并返回一个新的 LocalLimiter 实例。
// r: 每秒生成的令牌数。b: 令牌桶容量，即允许的瞬时突发请求数。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limit: r, burst: b}
}

// Allow 尝试从 key 对应的桶中获取一个令牌。
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	v, ok := l.buckets.Load(key)
	if !ok {
		v, _ = l.buckets.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	}
	return v.(*rate.Limiter).Allow(), nil
}

const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, start)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, (now - start) * 2)
	return 1
end
return 0
`

// RedisLimiter 分布式滑动窗口限流器。
type RedisLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	window time.Duration
	limit  int64
	seq    uint64
	mu     sync.Mutex
}

// NewRedisLimiter 创建滑动窗口限流器：window 内最多 limit 次请求。
func NewRedisLimiter(client redis.UniversalClient, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(slidingWindowScript),
		prefix: "bloomlab:ratelimit:",
		window: window,
		limit:  limit,
	}
}

// Allow 在 Lua 脚本中原子地裁剪窗口、计数并记录本次请求。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	nowMs := now.UnixMilli()
	startMs := now.Add(-l.window).UnixMilli()

	l.mu.Lock()
	l.seq++
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(l.seq, 10)
	l.mu.Unlock()

	res, err := l.script.Run(ctx, l.client, []string{l.prefix + key}, nowMs, startMs, l.limit, member).Int()
	if err != nil {
		return false, fmt.Errorf("redis sliding window: %w", err)
	}
	return res == 1, nil
}

// Guarded 以熔断器保护后端限流器。后端出错或熔断打开时放行请求并记录告警。
type Guarded struct {
	next    Limiter
	breaker *breaker.Breaker
}

// NewGuarded 创建带熔断保护的限流器。
func NewGuarded(next Limiter, b *breaker.Breaker) *Guarded {
	return &Guarded{next: next, breaker: b}
}

// Allow 永远不返回错误。
func (g *Guarded) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := breaker.ExecuteTyped(g.breaker, func() (bool, error) {
		return g.next.Allow(ctx, key)
	})
	if err != nil {
		slog.WarnContext(ctx, "rate limiter backend failed, allowing request", "key", key, "error", err)
		return true, nil
	}
	return allowed, nil
}

// New 按配置构造限流器。backend 为 redis 时 client 不能为空。
func New(cfg config.RateLimitConfig, client redis.UniversalClient, b *breaker.Breaker) (Limiter, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalLimiter(rate.Limit(cfg.Rate), cfg.Burst), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		window := cfg.Window
		if window <= 0 {
			window = time.Second
		}
		limit := max(1, int64(float64(cfg.Rate)*window.Seconds()))
		return NewGuarded(NewRedisLimiter(client, limit, window), b), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}
