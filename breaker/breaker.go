// Package breaker 提供了基于 gobreaker 的熔断器封装，保护对 Redis 等外部依赖的调用.
package breaker

import (
	"errors"
	"log/slog"

	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Breaker 封装了 gobreaker 实例，集成了 Prometheus 指标监控与日志。
// 未启用时 Execute 直接调用 fn。
type Breaker struct {
	circuitBreaker *gobreaker.CircuitBreaker
}

// Settings 定义了熔断器的初始化参数。
type Settings struct {
	Name         string
	Config       config.CircuitBreakerConfig
	FailureRatio float64
	MinRequests  uint32
}

// NewBreaker 初始化并返回一个新的熔断器封装对象。
func NewBreaker(st Settings, m *metrics.Metrics) *Breaker {
	if !st.Config.Enabled {
		return &Breaker{}
	}

	failureRatio := st.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}

	minRequests := st.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	var stateGauge *prometheus.GaugeVec
	if m != nil {
		stateGauge = m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0: Closed, 1: Half-Open, 2: Open)",
		}, []string{"name"})
		stateGauge.WithLabelValues(st.Name).Set(float64(gobreaker.StateClosed))
	}

	gs := gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.Config.MaxRequests,
		Interval:    st.Config.Interval,
		Timeout:     st.Config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if stateGauge != nil {
				stateGauge.WithLabelValues(name).Set(float64(to))
			}
		},
	}

	return &Breaker{circuitBreaker: gobreaker.NewCircuitBreaker(gs)}
}

// State 返回当前状态，未启用时视为 Closed。
func (b *Breaker) State() gobreaker.State {
	if b == nil || b.circuitBreaker == nil {
		return gobreaker.StateClosed
	}
	return b.circuitBreaker.State()
}

// ExecuteTyped 执行受熔断保护的函数，熔断打开时返回 xerrors.ErrServiceUnavailable。
func ExecuteTyped[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil || b.circuitBreaker == nil {
		return fn()
	}

	res, err := b.circuitBreaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, xerrors.ErrServiceUnavailable.Derive("%s", err)
		}
		return zero, err
	}

	return res.(T), nil
}
