package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledBreakerPassesThrough(t *testing.T) {
	b := NewBreaker(Settings{Name: "off"}, nil)
	v, err := ExecuteTyped(b, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, gobreaker.StateClosed, b.State())

	var nilBreaker *Breaker
	_, err = ExecuteTyped(nilBreaker, func() (int, error) { return 0, errors.New("x") })
	assert.EqualError(t, err, "x")
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	m := metrics.NewMetrics("breaker-test")
	b := NewBreaker(Settings{
		Name:        "redis",
		Config:      config.CircuitBreakerConfig{Enabled: true, Timeout: time.Minute, Interval: time.Minute, MaxRequests: 1},
		MinRequests: 2,
	}, m)

	boom := errors.New("boom")
	for range 2 {
		_, err := ExecuteTyped(b, func() (bool, error) { return false, boom })
		assert.ErrorIs(t, err, boom)
	}

	_, err := ExecuteTyped(b, func() (bool, error) { return true, nil })
	assert.True(t, errors.Is(err, xerrors.ErrServiceUnavailable))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	n, err := testutil.GatherAndCount(m.Registry(), "circuit_breaker_state")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
