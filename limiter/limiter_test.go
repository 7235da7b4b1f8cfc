package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/bloomlab/breaker"
	"github.com/wyfcoding/bloomlab/config"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLimiter struct {
	calls int
}

func (f *failingLimiter) Allow(context.Context, string) (bool, error) {
	f.calls++
	return false, errors.New("backend down")
}

func TestLocalLimiter_PerKeyBuckets(t *testing.T) {
	l := NewLocalLimiter(0, 2)
	ctx := context.Background()

	for range 2 {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestGuarded_FailsOpenAndTrips(t *testing.T) {
	b := breaker.NewBreaker(breaker.Settings{
		Name:        "ratelimit-test",
		Config:      config.CircuitBreakerConfig{Enabled: true, Timeout: time.Minute, Interval: time.Minute, MaxRequests: 1},
		MinRequests: 3,
	}, nil)
	backend := &failingLimiter{}
	g := NewGuarded(backend, b)

	for range 10 {
		ok, err := g.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	// 熔断打开后不再调用后端
	assert.Equal(t, 3, backend.calls)
}

func TestRedisLimiter_UnreachableBackendFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisLimiter(client, 10, time.Second).Allow(context.Background(), "k")
	assert.Error(t, err)

	l, err := New(config.RateLimitConfig{Backend: "redis", Rate: 10, Window: time.Second}, client, breaker.NewBreaker(breaker.Settings{}, nil))
	require.NoError(t, err)
	ok, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew(t *testing.T) {
	l, err := New(config.RateLimitConfig{Backend: "local", Rate: 5, Burst: 5}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalLimiter{}, l)

	_, err = New(config.RateLimitConfig{Backend: "redis"}, nil, nil)
	assert.Error(t, err)

	_, err = New(config.RateLimitConfig{Backend: "etcd"}, nil, nil)
	assert.Error(t, err)
}
