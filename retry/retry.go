// Package retry 提供带抖动的指数退避重试，用于外部依赖的建连探测.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy 重试策略。Attempts 为总尝试次数，非正时按 1 次处理。
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
}

// DefaultPolicy 返回默认策略：3 次尝试，50ms 起步，翻倍，最长 1s。
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
		Jitter:         0.1,
	}
}

// Backoff 返回第 n 次失败 (从 0 开始) 之后的等待时间，不含抖动。
func (p Policy) Backoff(n int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialBackoff)
	for range n {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	return time.Duration(d)
}

func (p Policy) jittered(n int) time.Duration {
	d := float64(p.Backoff(n))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * p.Jitter * d
	}
	return time.Duration(d)
}

// Do 执行 fn 直到成功、用尽尝试次数或 ctx 结束。
// 返回的错误包装了最后一次失败。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := max(1, p.Attempts)

	var lastErr error
	for i := range attempts {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.jittered(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", i+1, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("retry failed after %d attempts: %w", attempts, lastErr)
}
