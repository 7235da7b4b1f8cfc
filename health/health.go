// Package health 提供依赖健康检查与 /healthz 处理器。
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

// Checker 定义健康检查函数原型。
type Checker func(ctx context.Context) error

// Status 单项检查结果。
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report 汇总检查结果。
type Report struct {
	Service string   `json:"service"`
	Healthy bool     `json:"healthy"`
	Checks  []Status `json:"checks"`
}

// Registry 按注册顺序执行检查，并发安全。
type Registry struct {
	mu       sync.RWMutex
	service  string
	names    []string
	checkers map[string]Checker
	timeout  time.Duration
}

// NewRegistry 创建检查注册表。
func NewRegistry(service string) *Registry {
	return &Registry{
		service:  service,
		checkers: make(map[string]Checker),
		timeout:  defaultTimeout,
	}
}

// Register 注册或替换同名检查。
func (r *Registry) Register(name string, c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checkers[name]; !ok {
		r.names = append(r.names, name)
	}
	r.checkers[name] = c
}

// Check 执行全部检查。每项检查使用独立的超时。
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	checkers := make([]Checker, len(names))
	for i, n := range names {
		checkers[i] = r.checkers[n]
	}
	r.mu.RUnlock()

	report := Report{Service: r.service, Healthy: true, Checks: make([]Status, 0, len(names))}
	for i, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := c(cctx)
		cancel()

		st := Status{Name: names[i], Healthy: err == nil}
		if err != nil {
			st.Error = err.Error()
			report.Healthy = false
		}
		report.Checks = append(report.Checks, st)
	}
	return report
}

// Handler 返回 gin 处理器，全部健康时返回 200，否则 503。
func (r *Registry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := r.Check(c.Request.Context())
		code := http.StatusOK
		if !report.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

// RedisChecker 返回 Redis 健康检查函数。
func RedisChecker(client redis.UniversalClient) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		return client.Ping(ctx).Err()
	}
}

// CapacityChecker 在 current() 达到 limit 时报告不健康。limit 非正时始终健康。
func CapacityChecker(current func() int, limit int) Checker {
	return func(context.Context) error {
		if limit <= 0 {
			return nil
		}
		if n := current(); n >= limit {
			return fmt.Errorf("capacity exhausted: %d/%d", n, limit)
		}
		return nil
	}
}
